// Package media acquires source media and prepares audio for transcription.
//
// Downloads go through yt-dlp and audio extraction through ffmpeg. Both run as
// subprocesses via Exec, which captures combined output and strips NO_PROXY
// from the child environment so an explicit --proxy always applies. A nonzero
// exit surfaces as *CommandError, which matches services.ErrCommandFailed.
package media
