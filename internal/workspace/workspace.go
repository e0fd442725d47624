package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"whispersub/internal/fileutil"
	"whispersub/internal/services"
	"whispersub/internal/subtitles"
)

const (
	// DirPrefix prefixes every workspace directory name.
	DirPrefix     = "job-"
	mediaBase     = "media"
	audioName     = "audio.wav"
	transcriptDir = "transcript"
	lockName      = ".job.lock"
)

// Workspace is a job-owned directory with a fixed path scheme.
type Workspace struct {
	ID   string
	Root string
}

// NewID returns a fresh job identifier of the form job-<32 hex>.
func NewID() string {
	return DirPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create makes baseDir if needed and allocates a new, unique workspace in it.
// An existing directory with the generated name is an error; workspaces are
// never shared between jobs.
func Create(baseDir string) (*Workspace, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "workspace", "create", "runs directory not set", nil)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create runs directory: %w", err)
	}
	id := NewID()
	root := filepath.Join(baseDir, id)
	if err := os.Mkdir(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", id, err)
	}
	return &Workspace{ID: id, Root: root}, nil
}

// Open returns the workspace rooted at dir without creating anything.
func Open(dir string) (*Workspace, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "workspace", "open", dir, nil)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", dir)
	}
	return &Workspace{ID: filepath.Base(dir), Root: dir}, nil
}

// MediaPath returns the canonical media path for the given extension (".mp4").
func (w *Workspace) MediaPath(ext string) string {
	return filepath.Join(w.Root, mediaBase+ext)
}

// AudioPath returns the extracted audio location.
func (w *Workspace) AudioPath() string {
	return filepath.Join(w.Root, audioName)
}

// SubtitlePath returns the output path for a track in a format, e.g. bilingual.vtt.
func (w *Workspace) SubtitlePath(track subtitles.Track, format subtitles.Format) string {
	return filepath.Join(w.Root, string(track)+"."+string(format))
}

// TranscriptDir is where the speech model writes its raw output.
func (w *Workspace) TranscriptDir() string {
	return filepath.Join(w.Root, transcriptDir)
}

// LockPath is the advisory lock file held while a job runs.
func (w *Workspace) LockPath() string {
	return filepath.Join(w.Root, lockName)
}

// Lock takes an exclusive advisory lock on the workspace. The returned
// function releases it.
func (w *Workspace) Lock() (func() error, error) {
	lock := flock.New(w.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock workspace: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("workspace %s is locked by another job", w.ID)
	}
	return lock.Unlock, nil
}

// EnsureLocalMedia copies a user-supplied file into the workspace, keeping its
// extension. The source is left untouched.
func EnsureLocalMedia(w *Workspace, path string) (string, error) {
	if _, err := statFile(path); err != nil {
		return "", err
	}
	dest := w.MediaPath(filepath.Ext(path))
	if err := fileutil.CopyFile(path, dest); err != nil {
		return "", fmt.Errorf("copy local media: %w", err)
	}
	return dest, nil
}

// SetMediaPath moves a downloaded file into the canonical media location. If
// the file is already there it is returned unchanged.
func SetMediaPath(w *Workspace, downloaded string) (string, error) {
	if _, err := statFile(downloaded); err != nil {
		return "", err
	}
	dest := w.MediaPath(filepath.Ext(downloaded))
	if fileutil.SamePath(downloaded, dest) {
		return dest, nil
	}
	if err := fileutil.MoveFile(downloaded, dest); err != nil {
		return "", fmt.Errorf("move downloaded media: %w", err)
	}
	return dest, nil
}

func statFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "workspace", "stage media", "media file not found: "+path, nil)
		}
		return nil, fmt.Errorf("stat media: %w", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrNotFound, "workspace", "stage media", "media path is a directory: "+path, nil)
	}
	return info, nil
}
