package pipeline

import "whispersub/internal/subtitles"

// Stage names a pipeline state.
type Stage string

const (
	StageStart           Stage = "start"
	StageDownloading     Stage = "downloading"
	StageExtractingAudio Stage = "extracting_audio"
	StageTranscribing    Stage = "transcribing"
	StageTranslating     Stage = "translating"
	StageDone            Stage = "done"
)

// Status lines shown to users at each stage boundary.
const (
	StatusStarting     = "**Starting job...**"
	StatusDownloading  = "**Downloading video...**"
	StatusExtracting   = "**Extracting audio...**"
	StatusTranscribing = "**Transcribing (this may take a while)...**"
	StatusTranslating  = "**Transcription complete. Translating...**"
	StatusDone         = "**All Done!**"
)

// TrackFiles are the two renditions of one track.
type TrackFiles struct {
	SRT string `json:"srt,omitempty"`
	VTT string `json:"vtt,omitempty"`
}

// Update is a snapshot of job progress.
type Update struct {
	JobID        string     `json:"job_id"`
	Stage        Stage      `json:"stage"`
	Status       string     `json:"status"`
	WorkspaceDir string     `json:"workspace_dir,omitempty"`
	MediaPath    string     `json:"media_path,omitempty"`
	Segments     int        `json:"segments,omitempty"`
	Original     TrackFiles `json:"original"`
	Translated   TrackFiles `json:"translated"`
	Bilingual    TrackFiles `json:"bilingual"`
}

// Observer receives a snapshot after each stage boundary.
type Observer func(Update)

// Files returns the outputs recorded for track.
func (u Update) Files(track subtitles.Track) TrackFiles {
	switch track {
	case subtitles.TrackTranslated:
		return u.Translated
	case subtitles.TrackBilingual:
		return u.Bilingual
	default:
		return u.Original
	}
}

// PreferredVTT returns the VTT for track when present, otherwise the original
// VTT, otherwise "".
func (u Update) PreferredVTT(track subtitles.Track) string {
	if vtt := u.Files(track).VTT; vtt != "" {
		return vtt
	}
	return u.Original.VTT
}

// Outputs flattens the recorded subtitle paths keyed "<track>.<format>".
func (u Update) Outputs() map[string]string {
	out := make(map[string]string, 6)
	for _, track := range subtitles.Tracks {
		files := u.Files(track)
		if files.SRT != "" {
			out[string(track)+"."+string(subtitles.FormatSRT)] = files.SRT
		}
		if files.VTT != "" {
			out[string(track)+"."+string(subtitles.FormatVTT)] = files.VTT
		}
	}
	return out
}
