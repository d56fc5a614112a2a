package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateZoom(); err != nil {
		return err
	}
	if err := c.validateMirror(); err != nil {
		return err
	}
	if err := c.validateTransfer(); err != nil {
		return err
	}
	if err := c.validateDrive(); err != nil {
		return err
	}
	if err := c.validateVerify(); err != nil {
		return err
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr is required when metrics.enabled is true")
	}
	return nil
}

func (c *Config) validateZoom() error {
	if c.Zoom.CredentialsFile == "" {
		return errors.New("zoom.credentials_file must be set")
	}
	if c.Zoom.UserID == "" {
		return errors.New("zoom.user_id must be set")
	}
	if c.Zoom.PageSize <= 0 || c.Zoom.PageSize > 300 {
		return errors.New("zoom.page_size must be between 1 and 300")
	}
	if c.Zoom.RefreshFrequency <= 0 {
		return errors.New("zoom.refresh_frequency must be positive")
	}
	if c.Zoom.RefreshFrequency >= 3600 {
		return fmt.Errorf("zoom.refresh_frequency must stay below the 3600s token lifetime, got %d", c.Zoom.RefreshFrequency)
	}
	switch c.Zoom.RotationPolicy {
	case "reuse", "require":
	default:
		return fmt.Errorf("zoom.rotation_policy must be reuse or require, got %q", c.Zoom.RotationPolicy)
	}
	return nil
}

func (c *Config) validateMirror() error {
	if c.Mirror.BaseDir == "" {
		return errors.New("mirror.base_dir must be set")
	}
	if c.Mirror.StateDir == "" {
		return errors.New("mirror.state_dir must be set")
	}
	start, err := time.Parse(time.DateOnly, c.Mirror.StartDate)
	if err != nil {
		return fmt.Errorf("mirror.start_date must be YYYY-MM-DD: %w", err)
	}
	end, err := time.Parse(time.DateOnly, c.Mirror.EndDate)
	if err != nil {
		return fmt.Errorf("mirror.end_date must be YYYY-MM-DD: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("mirror.end_date %s is before mirror.start_date %s", c.Mirror.EndDate, c.Mirror.StartDate)
	}
	return nil
}

func (c *Config) validateTransfer() error {
	if c.Transfer.MaxAttempts < 1 {
		return errors.New("transfer.max_attempts must be at least 1")
	}
	if c.Transfer.RetryDelaySeconds < 0 {
		return errors.New("transfer.retry_delay_seconds must not be negative")
	}
	if c.Transfer.ChunkSize <= 0 {
		return errors.New("transfer.chunk_size must be positive")
	}
	if c.Transfer.MinUploadSize < 0 {
		return errors.New("transfer.min_upload_size must not be negative")
	}
	return nil
}

func (c *Config) validateDrive() error {
	if !c.Drive.Enabled {
		if c.Mirror.DeleteAfterUpload {
			return errors.New("mirror.delete_after_upload requires drive.enabled")
		}
		return nil
	}
	if c.Drive.UploadFolderID == "" {
		return errors.New("drive.upload_folder_id is required when drive.enabled is true")
	}
	if c.Drive.CredentialsFile == "" {
		return errors.New("drive.credentials_file is required when drive.enabled is true")
	}
	if c.Drive.ChunkSizeMiB <= 0 {
		return errors.New("drive.chunk_size_mib must be positive")
	}
	return nil
}

func (c *Config) validateVerify() error {
	if c.Verify.Margin < 0 || c.Verify.Margin >= 1 {
		return errors.New("verify.margin must be in [0, 1)")
	}
	if c.Verify.Threshold < 0 || c.Verify.Threshold > 100 {
		return errors.New("verify.threshold must be between 0 and 100")
	}
	return nil
}
