// Package output renders transcripts for humans.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/guiyumin/vscribe/internal/core/ai/transcriber"
)

// Markdown renders a transcript of videoID as a markdown document.
func Markdown(videoID, sourceURL string, result *transcriber.Result, transcribedAt time.Time) string {
	var b strings.Builder

	// Header
	b.WriteString(fmt.Sprintf("# Transcript: %s\n\n", videoID))

	// Metadata
	if sourceURL != "" {
		b.WriteString(fmt.Sprintf("**Source:** %s\n", sourceURL))
	}
	if result.Duration > 0 {
		b.WriteString(fmt.Sprintf("**Duration:** %s\n", formatDuration(result.Duration)))
	}
	if result.Language != "" {
		b.WriteString(fmt.Sprintf("**Language:** %s\n", result.Language))
	}
	b.WriteString(fmt.Sprintf("**Transcribed:** %s\n", transcribedAt.Format("2006-01-02 15:04:05")))
	b.WriteString("\n---\n\n")

	if len(result.Segments) == 0 {
		b.WriteString("_No speech detected._\n")
		return b.String()
	}

	for _, seg := range result.Segments {
		text := strings.TrimSpace(seg.Text)
		if text != "" {
			b.WriteString(fmt.Sprintf("[%s] %s\n\n", formatTimestamp(seg.Start), text))
		}
	}

	return b.String()
}

// WriteTranscript writes the markdown transcript to outputPath.
func WriteTranscript(outputPath, videoID, sourceURL string, result *transcriber.Result) error {
	return os.WriteFile(outputPath, []byte(Markdown(videoID, sourceURL, result, time.Now())), 0644)
}

// formatTimestamp formats seconds as MM:SS, or HH:MM:SS past the hour.
func formatTimestamp(sec float64) string {
	d := time.Duration(sec * float64(time.Second))
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
