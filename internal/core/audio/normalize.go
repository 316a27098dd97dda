package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// TargetSampleRate is the sample rate whisper expects.
const TargetSampleRate = 16000

// Normalize converts the file at path to 16 kHz mono 16-bit PCM WAV and
// returns its bytes. Intermediate files are written to workDir, which the
// caller owns. ffmpegPath may be empty, in which case formats without a
// pure Go decoder go through the embedded WASM ffmpeg.
func Normalize(ctx context.Context, path, workDir, ffmpegPath string) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		samples    []float32
		sampleRate int
		err        error
	)

	switch ext {
	case ".wav":
		ok, err := isTargetWAV(path)
		if err != nil {
			return nil, err
		}
		if ok {
			return os.ReadFile(path)
		}
		samples, sampleRate, err = ReadWAV(path)
		if err != nil {
			return nil, err
		}
	case ".mp3":
		samples, sampleRate, err = readMP3Samples(path)
	case ".flac":
		samples, sampleRate, err = readFLACSamples(path)
	default:
		out := filepath.Join(workDir, "normalized.wav")
		if ffmpegPath != "" {
			err = convertWithFFmpeg(ctx, ffmpegPath, path, out)
		} else {
			err = convertWithWASM(ctx, path, out)
		}
		if err != nil {
			return nil, err
		}
		return os.ReadFile(out)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ext, err)
	}

	samples = ResampleTo16kHz(samples, sampleRate)

	out := filepath.Join(workDir, "normalized.wav")
	if err := WriteWAV(out, samples, TargetSampleRate); err != nil {
		return nil, fmt.Errorf("failed to encode WAV: %w", err)
	}
	return os.ReadFile(out)
}

// isTargetWAV reports whether path is already 16 kHz mono 16-bit PCM.
func isTargetWAV(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return false, fmt.Errorf("invalid WAV file")
	}
	return decoder.SampleRate == TargetSampleRate &&
		decoder.NumChans == 1 &&
		decoder.BitDepth == 16 &&
		decoder.WavAudioFormat == 1, nil
}

// ReadWAV decodes a PCM WAV file into mono float32 samples in [-1, 1].
func ReadWAV(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode WAV: %w", err)
	}

	channels := int(decoder.NumChans)
	if channels < 1 {
		channels = 1
	}
	bitDepth := int(decoder.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	maxVal := float32(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var mono int64
		for ch := 0; ch < channels; ch++ {
			mono += int64(buf.Data[i*channels+ch])
		}
		samples[i] = float32(mono/int64(channels)) / maxVal
	}

	return samples, int(decoder.SampleRate), nil
}

// WriteWAV writes mono float32 samples as a 16-bit PCM WAV file.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, sampleRate, 16, 1, 1)

	intBuf := &audio.IntBuffer{
		Data:           make([]int, len(samples)),
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	}

	for i, s := range samples {
		// Clamp and convert
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		intBuf.Data[i] = int(s * 32767)
	}

	if err := encoder.Write(intBuf); err != nil {
		return err
	}
	return encoder.Close()
}

// readMP3Samples reads MP3 and returns mono float32 samples.
func readMP3Samples(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, 0, err
	}

	sampleRate := decoder.SampleRate()
	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, err
	}

	// go-mp3 always yields stereo 16-bit little-endian PCM
	numSamples := len(data) / 4
	samples := make([]float32, numSamples)

	const maxInt16 = 32768.0
	for i := 0; i < numSamples; i++ {
		left := int16(data[i*4]) | int16(data[i*4+1])<<8
		right := int16(data[i*4+2]) | int16(data[i*4+3])<<8
		mono := (int32(left) + int32(right)) / 2
		samples[i] = float32(mono) / maxInt16
	}

	return samples, sampleRate, nil
}

// readFLACSamples reads FLAC and returns mono float32 samples.
func readFLACSamples(path string) ([]float32, int, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer stream.Close()

	sampleRate := int(stream.Info.SampleRate)
	nChannels := int(stream.Info.NChannels)
	bitsPerSample := int(stream.Info.BitsPerSample)
	maxVal := float32(int64(1) << (bitsPerSample - 1))

	var samples []float32
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		nSamples := len(frame.Subframes[0].Samples)
		for i := 0; i < nSamples; i++ {
			var mono int64
			for ch := 0; ch < nChannels; ch++ {
				mono += int64(frame.Subframes[ch].Samples[i])
			}
			mono /= int64(nChannels)
			samples = append(samples, float32(mono)/maxVal)
		}
	}

	return samples, sampleRate, nil
}

// ResampleTo16kHz resamples audio using linear interpolation.
func ResampleTo16kHz(samples []float32, srcRate int) []float32 {
	if srcRate == TargetSampleRate || srcRate <= 0 {
		return samples
	}

	ratio := float64(srcRate) / TargetSampleRate
	newLen := int(float64(len(samples)) / ratio)
	resampled := make([]float32, newLen)

	for i := 0; i < newLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		if srcIdx+1 < len(samples) {
			resampled[i] = samples[srcIdx]*(1-frac) + samples[srcIdx+1]*frac
		} else if srcIdx < len(samples) {
			resampled[i] = samples[srcIdx]
		}
	}

	return resampled
}
