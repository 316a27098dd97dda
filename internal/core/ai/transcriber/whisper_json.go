package transcriber

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// parseWhisperJSON reads the file written by `whisper-cli -oj`:
//
//	{"result": {"language": "en"},
//	 "transcription": [{"offsets": {"from": 0, "to": 3000}, "text": " Hi"}]}
//
// Offsets are milliseconds.
func parseWhisperJSON(data []byte) (*Result, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid whisper.cpp JSON output")
	}

	doc := gjson.ParseBytes(data)
	segments := make([]Segment, 0)

	doc.Get("transcription").ForEach(func(_, item gjson.Result) bool {
		segments = append(segments, Segment{
			Start: item.Get("offsets.from").Float() / 1000,
			End:   item.Get("offsets.to").Float() / 1000,
			Text:  item.Get("text").String(),
		})
		return true
	})

	language := doc.Get("result.language").String()
	if language == "" {
		language = doc.Get("params.language").String()
	}

	return &Result{
		Segments: segments,
		Language: language,
	}, nil
}
