package media

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"whispersub/internal/logging"
	"whispersub/internal/services"
)

const (
	// YTDLPCommand is the default downloader executable.
	YTDLPCommand   = "yt-dlp"
	formatSelector = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	outputStem     = "source"
)

// Downloader fetches remote media into a directory and returns the file path.
type Downloader interface {
	Download(ctx context.Context, url, destDir string) (string, error)
}

// YTDLP downloads media with yt-dlp.
type YTDLP struct {
	Binary string
	Proxy  string
	Run    Runner
	Logger *slog.Logger
}

// Args returns the yt-dlp argument list for url.
func (y YTDLP) Args(url, destDir string) []string {
	args := []string{
		"--no-playlist",
		"--force-ipv4",
		"--socket-timeout", "60",
		"-f", formatSelector,
		"--merge-output-format", "mp4",
		"-o", filepath.Join(destDir, outputStem+".%(ext)s"),
		url,
	}
	if proxy := strings.TrimSpace(y.Proxy); proxy != "" {
		args = append(args, "--proxy", proxy)
	}
	return args
}

// Download runs yt-dlp and returns the newest source.* file it produced.
func (y YTDLP) Download(ctx context.Context, url, destDir string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", services.Wrap(services.ErrConfiguration, "downloading", "yt-dlp", "url is empty", nil)
	}
	binary := strings.TrimSpace(y.Binary)
	if binary == "" {
		binary = YTDLPCommand
	}
	run := y.Run
	if run == nil {
		run = Exec
	}
	logger := logging.NewComponentLogger(y.Logger, "yt-dlp")
	logger.Debug("download starting",
		logging.String("url", url),
		logging.Bool("proxy", y.Proxy != ""),
	)

	if _, err := run(ctx, Command{Name: binary, Args: y.Args(url, destDir)}); err != nil {
		return "", err
	}

	path, err := newestDownload(destDir)
	if err != nil {
		return "", err
	}
	logger.Info("download complete", logging.String("path", path))
	return path, nil
}

func newestDownload(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, outputStem+".*"))
	if err != nil {
		return "", err
	}
	var (
		best    string
		bestMod int64
	)
	for _, match := range matches {
		if strings.HasSuffix(match, ".part") || strings.HasSuffix(match, ".ytdl") {
			continue
		}
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		if mod := info.ModTime().UnixNano(); best == "" || mod > bestMod {
			best, bestMod = match, mod
		}
	}
	if best == "" {
		return "", services.Wrap(services.ErrNotFound, "downloading", "yt-dlp", "download produced no source file in "+dir, nil)
	}
	return best, nil
}
