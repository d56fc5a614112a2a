package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/phyninja/zoom-recordings-backup/internal/drive"
	"github.com/phyninja/zoom-recordings-backup/internal/instrumentation"
	"github.com/phyninja/zoom-recordings-backup/internal/logging"
	"github.com/phyninja/zoom-recordings-backup/internal/naming"
	"github.com/phyninja/zoom-recordings-backup/internal/state"
	"github.com/phyninja/zoom-recordings-backup/internal/zoom"
)

// Fetcher lists the meetings of one window.
type Fetcher interface {
	FetchWindow(ctx context.Context, start, end time.Time) ([]zoom.Meeting, error)
}

// Downloader writes one remote file to a local path.
type Downloader interface {
	Download(ctx context.Context, url, dest string, expectedSize int64) error
}

// Uploader copies one local file into a remote folder.
type Uploader interface {
	Upload(ctx context.Context, localPath, folderID string) (string, error)
}

// FolderResolver finds or creates the remote folder of a meeting.
type FolderResolver interface {
	EnsureFolder(ctx context.Context, name, parentID string) (*drive.FileInfo, error)
}

// Progress records window and transfer outcomes across runs.
type Progress interface {
	WindowComplete(ctx context.Context, start, end time.Time) (bool, error)
	MarkWindowComplete(ctx context.Context, start, end time.Time, meetings int) error
	Transfer(ctx context.Context, meetingUUID, fileID string) (*state.Transfer, error)
	RecordTransfer(ctx context.Context, t state.Transfer) error
}

// Options configures a Syncer.
type Options struct {
	BaseDir string
	Start   time.Time
	End     time.Time

	// DriveFolderID is the parent of per-meeting Drive folders. Uploads are
	// enabled when an Uploader and a FolderResolver are configured.
	DriveFolderID     string
	DeleteAfterUpload bool
}

// Failure is one file, folder or window that could not be processed.
type Failure struct {
	Window  string
	Meeting string
	Path    string
	Err     error
}

func (f Failure) Error() string {
	switch {
	case f.Path != "":
		return fmt.Sprintf("%s: %v", f.Path, f.Err)
	case f.Meeting != "":
		return fmt.Sprintf("meeting %s: %v", f.Meeting, f.Err)
	default:
		return fmt.Sprintf("window %s: %v", f.Window, f.Err)
	}
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Summary counts what a run did.
type Summary struct {
	Windows        int
	WindowsSkipped int
	Meetings       int
	Downloaded     int
	Skipped        int
	Uploaded       int
	Deleted        int
	Bytes          int64
	Failures       []Failure
}

// Syncer mirrors recordings window by window, one file at a time.
type Syncer struct {
	fetcher    Fetcher
	downloader Downloader
	uploader   Uploader
	folders    FolderResolver
	progress   Progress
	opts       Options
	logger     *slog.Logger
	onWindow   func(Window)
}

// SyncerOption configures optional Syncer collaborators.
type SyncerOption func(*Syncer)

// WithUpload enables the secondary upload of every downloaded file.
func WithUpload(uploader Uploader, folders FolderResolver) SyncerOption {
	return func(s *Syncer) {
		s.uploader = uploader
		s.folders = folders
	}
}

// WithProgress enables resume and idempotence tracking.
func WithProgress(progress Progress) SyncerOption {
	return func(s *Syncer) {
		s.progress = progress
	}
}

// WithSyncLogger sets the logger.
func WithSyncLogger(logger *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWindowObserver registers fn to be called as each window starts.
func WithWindowObserver(fn func(Window)) SyncerOption {
	return func(s *Syncer) {
		s.onWindow = fn
	}
}

// NewSyncer creates a Syncer.
func NewSyncer(fetcher Fetcher, downloader Downloader, opts Options, options ...SyncerOption) *Syncer {
	s := &Syncer{
		fetcher:    fetcher,
		downloader: downloader,
		opts:       opts,
		logger:     slog.Default(),
	}
	for _, o := range options {
		o(s)
	}
	s.logger = logging.WithComponent(s.logger, "mirror.sync")
	return s
}

func (s *Syncer) uploadsEnabled() bool {
	return s.uploader != nil && s.folders != nil
}

// Run mirrors every window in the configured range. Per-file failures are
// collected in the summary and never stop sibling files. A window is marked
// complete only when all of its files succeeded. An *zoom.AuthError or a
// cancelled ctx stops the run; the summary so far is returned with it.
func (s *Syncer) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	for _, w := range Windows(s.opts.Start, s.opts.End) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Windows++
		logger := s.logger.With(logging.Window(w.Start, w.End))
		if s.onWindow != nil {
			s.onWindow(w)
		}

		if s.progress != nil {
			done, err := s.progress.WindowComplete(ctx, w.Start, w.End)
			if err != nil {
				return summary, fmt.Errorf("read window state: %w", err)
			}
			if done {
				summary.WindowsSkipped++
				logger.Debug("window already complete", logging.Status(logging.StatusSkipped))
				continue
			}
		}

		logger.Info("fetching recordings")
		meetings, err := s.fetcher.FetchWindow(ctx, w.Start, w.End)
		complete := true
		var abort error
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			// Mirror the pages that did arrive; the window stays incomplete.
			// An auth failure ends the run once they are handled.
			var authErr *zoom.AuthError
			if errors.As(err, &authErr) {
				abort = err
			} else {
				summary.Failures = append(summary.Failures, Failure{Window: w.String(), Err: err})
			}
			logger.Error("window listing incomplete", logging.Err(err), slog.Int("meetings", len(meetings)))
			complete = false
		} else if len(meetings) == 0 {
			logger.Info("no recordings in window")
		}

		for _, m := range meetings {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			if !s.syncMeeting(ctx, m, summary) {
				complete = false
			}
		}
		summary.Meetings += len(meetings)

		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if abort != nil {
			return summary, abort
		}
		if complete && s.progress != nil {
			if err := s.progress.MarkWindowComplete(ctx, w.Start, w.End, len(meetings)); err != nil {
				logger.Warn("failed to record window completion", logging.Err(err))
			}
		}
	}

	return summary, nil
}

// syncMeeting mirrors one meeting and reports whether every file succeeded.
func (s *Syncer) syncMeeting(ctx context.Context, m zoom.Meeting, summary *Summary) (ok bool) {
	ctx, span := instrumentation.StartSpan(ctx, "mirror.meeting",
		instrumentation.NewSpanAttributeBuilder().WithMeeting(m.UUID).Build()...)
	failures := len(summary.Failures)
	defer func() {
		var err error
		if !ok {
			if err = ctx.Err(); err == nil {
				err = fmt.Errorf("%d failure(s)", len(summary.Failures)-failures)
			}
		}
		instrumentation.EndSpan(span, err)
	}()

	folderName := naming.FolderName(m.Topic, m.StartTime)
	localDir := localFolder(s.opts.BaseDir, folderName)
	logger := s.logger.With(logging.Meeting(m.UUID), slog.String("folder", folderName))
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}

	if err := os.MkdirAll(localDir, 0o755); err != nil {
		summary.Failures = append(summary.Failures, Failure{Meeting: m.UUID, Path: localDir, Err: err})
		logger.Error("failed to create meeting folder", logging.Err(err))
		return false
	}

	ok = true
	var driveFolderID string
	if s.uploadsEnabled() {
		folder, err := s.folders.EnsureFolder(ctx, folderName, s.opts.DriveFolderID)
		if err != nil {
			summary.Failures = append(summary.Failures, Failure{Meeting: m.UUID, Err: fmt.Errorf("drive folder: %w", err)})
			logger.Error("failed to create Drive folder; uploads skipped for meeting", logging.Err(err))
			ok = false
		} else {
			driveFolderID = folder.ID
		}
	}

	for _, f := range m.Files {
		if err := ctx.Err(); err != nil {
			return false
		}
		if !s.syncFile(ctx, m, f, localDir, driveFolderID, summary) {
			ok = false
		}
	}
	return ok
}

func (s *Syncer) syncFile(ctx context.Context, m zoom.Meeting, f zoom.RecordingFile, localDir, driveFolderID string, summary *Summary) bool {
	path := filepath.Join(localDir, naming.FileName(f.RecordingType, f.FileExtension, f.RecordingStart, f.RecordingEnd))
	logger := s.logger.With(logging.Meeting(m.UUID), logging.Path(path))

	record := state.Transfer{MeetingUUID: m.UUID, FileID: fileKey(f), Path: path, Size: f.FileSize}
	fail := func(err error) bool {
		summary.Failures = append(summary.Failures, Failure{Meeting: m.UUID, Path: path, Err: err})
		record.Status = state.StatusFailed
		record.Error = err.Error()
		s.record(ctx, record)
		return false
	}

	if f.DownloadURL == "" {
		logger.Warn("recording file has no download url yet", slog.String("recording_status", f.Status))
		return fail(errors.New("no download url"))
	}

	prev := s.previous(ctx, m.UUID, record.FileID)
	if prev != nil && prev.Status == state.StatusUploaded {
		summary.Skipped++
		logger.Debug("file already mirrored and uploaded", logging.Status(logging.StatusSkipped))
		return true
	}

	if present(path, f.FileSize) {
		summary.Skipped++
		record.Status = state.StatusSkipped
		logger.Debug("file already present", logging.Status(logging.StatusSkipped))
	} else {
		if err := s.downloader.Download(ctx, f.DownloadURL, path, f.FileSize); err != nil {
			return fail(err)
		}
		summary.Downloaded++
		summary.Bytes += f.FileSize
		record.Status = state.StatusDownloaded
	}

	if driveFolderID != "" {
		id, err := s.uploader.Upload(ctx, path, driveFolderID)
		if err != nil {
			return fail(fmt.Errorf("upload: %w", err))
		}
		summary.Uploaded++
		record.Status = state.StatusUploaded
		record.RemoteID = id

		if s.opts.DeleteAfterUpload {
			if err := os.Remove(path); err != nil {
				logger.Warn("failed to delete local copy after upload", logging.Err(err))
			} else {
				summary.Deleted++
			}
		}
	} else if s.uploadsEnabled() {
		// Drive folder could not be resolved; the failure is already recorded.
		s.record(ctx, record)
		return false
	}

	s.record(ctx, record)
	return true
}

func (s *Syncer) previous(ctx context.Context, meetingUUID, fileID string) *state.Transfer {
	if s.progress == nil {
		return nil
	}
	prev, err := s.progress.Transfer(ctx, meetingUUID, fileID)
	if err != nil {
		s.logger.Warn("failed to read transfer state", logging.Err(err))
		return nil
	}
	return prev
}

func (s *Syncer) record(ctx context.Context, t state.Transfer) {
	if s.progress == nil {
		return
	}
	if err := s.progress.RecordTransfer(ctx, t); err != nil {
		s.logger.Warn("failed to record transfer state", logging.Path(t.Path), logging.Err(err))
	}
}

// present reports whether path exists with exactly size bytes. An unknown
// (zero) size never counts as present.
func present(path string, size int64) bool {
	if size <= 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() == size
}

// fileKey identifies a recording file within its meeting. Zoom omits ids for
// some artifacts, so the type and start time stand in.
func fileKey(f zoom.RecordingFile) string {
	if f.ID != "" {
		return f.ID
	}
	return f.RecordingType + "/" + f.FileType + "/" + f.RecordingStart.UTC().Format(time.RFC3339)
}
