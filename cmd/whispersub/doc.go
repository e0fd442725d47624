// Command whispersub generates original, translated and bilingual subtitles
// for a video URL or local file.
//
//	whispersub run --url https://www.youtube.com/watch?v=... --target zh
//	whispersub run --file talk.mp4 --language en --track bilingual
//	whispersub jobs list
//	whispersub doctor
//
// Configuration is read from ~/.config/whispersub/config.toml or
// ./whispersub.toml; `whispersub config init` writes a commented sample.
package main
