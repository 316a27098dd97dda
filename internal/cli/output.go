package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/guiyumin/vscribe/internal/core/ai/output"
	"github.com/guiyumin/vscribe/internal/core/ai/transcriber"
)

// transcriptMeta describes where a transcript came from.
type transcriptMeta struct {
	VideoID string
	URL     string
}

func writeResult(w io.Writer, res *transcriber.Result, f string, meta transcriptMeta) error {
	switch f {
	case FormatText:
		_, err := io.WriteString(w, res.FormattedText())
		return err
	case FormatSRT:
		_, err := io.WriteString(w, res.SRT())
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, output.Markdown(meta.VideoID, meta.URL, res, time.Now()))
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
}
