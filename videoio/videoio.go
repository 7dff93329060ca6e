// Package videoio decodes video containers into in-memory RGB frame
// sequences and encodes stabilized sequences back out, shelling out to
// ffmpeg through pipes. It is the frame source / frame sink collaborator of
// the stabilization core, which itself never touches files.
package videoio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	viamutils "go.viam.com/utils"

	"github.com/unshake/unshake/stabilize"
)

const bytesPerPixel = 3 // rgb24

type probeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	CodecTag   string `json:"codec_tag"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames   string `json:"nb_frames"`
	BitRate    string `json:"bit_rate"`
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		BitRate string `json:"bit_rate"`
	} `json:"format"`
}

// Probe reads the container-level properties of the video at path.
func Probe(path string) (stabilize.VideoMetadata, error) {
	var md stabilize.VideoMetadata
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return md, errors.Wrap(err, "ffprobe not found in PATH")
	}
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return md, errors.Wrapf(err, "cannot probe %q", path)
	}
	var info probeResult
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return md, errors.Wrap(err, "cannot parse probe output")
	}
	for _, stream := range info.Streams {
		if stream.CodecType != "video" {
			continue
		}
		md.Size = image.Point{stream.Width, stream.Height}
		md.FPS = parseFrameRate(stream.RFrameRate)
		md.FourCC = parseFourCC(stream.CodecTag)
		md.FrameCount, _ = strconv.Atoi(stream.NbFrames)
		if stream.BitRate != "" {
			md.Bitrate, _ = strconv.ParseFloat(stream.BitRate, 64)
		} else {
			md.Bitrate, _ = strconv.ParseFloat(info.Format.BitRate, 64)
		}
		return md, nil
	}
	return md, errors.Errorf("no video stream in %q", path)
}

// parseFrameRate converts an ffprobe rational like "30000/1001" to the
// nearest integer frame rate.
func parseFrameRate(rate string) int {
	parts := strings.SplitN(rate, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	den := 1.0
	if len(parts) == 2 {
		den, err = strconv.ParseFloat(parts[1], 64)
		if err != nil || den == 0 {
			return 0
		}
	}
	return int(num/den + 0.5)
}

// parseFourCC converts an ffprobe codec tag like "0x31637661" to its
// integer value.
func parseFourCC(tag string) int {
	v, err := strconv.ParseUint(strings.TrimPrefix(tag, "0x"), 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}

// ReadVideo decodes the video at path into an RGB frame sequence plus its
// metadata. Frames stream through a rawvideo pipe; nothing touches disk
// besides the input file itself.
func ReadVideo(ctx context.Context, path string, logger golog.Logger) ([]*image.RGBA, stabilize.VideoMetadata, error) {
	md, err := Probe(path)
	if err != nil {
		return nil, md, err
	}
	if md.Size.X <= 0 || md.Size.Y <= 0 {
		return nil, md, errors.Errorf("invalid video dimensions %v", md.Size)
	}
	logger.Infow("opened video", "path", path, "fps", md.FPS, "size", md.Size, "frames", md.FrameCount)

	buf := bytes.NewBuffer(nil)
	stream := ffmpeg.Input(path).
		Output("pipe:", ffmpeg.KwArgs{"format": "rawvideo", "pix_fmt": "rgb24"})
	stream.Context = ctx
	if err := stream.WithOutput(buf).Silent(true).Run(); err != nil {
		return nil, md, errors.Wrapf(err, "cannot decode %q", path)
	}

	frameSize := md.Size.X * md.Size.Y * bytesPerPixel
	data := buf.Bytes()
	if len(data)%frameSize != 0 {
		logger.Warnw("decoded byte count is not a whole number of frames", "bytes", len(data), "frame_size", frameSize)
	}
	n := len(data) / frameSize
	if n == 0 {
		return nil, md, errors.Errorf("no frames decoded from %q", path)
	}
	frames := make([]*image.RGBA, n)
	for i := 0; i < n; i++ {
		frames[i] = rgbToRGBA(data[i*frameSize:(i+1)*frameSize], md.Size.X, md.Size.Y)
	}
	md.FrameCount = n
	return frames, md, nil
}

// WriteVideo encodes frames to path at the metadata's frame rate.
func WriteVideo(ctx context.Context, path string, frames []*image.RGBA, md stabilize.VideoMetadata, logger golog.Logger) error {
	if len(frames) == 0 {
		return errors.New("no frames to export")
	}
	size := frames[0].Bounds().Size()
	fps := md.FPS
	if fps <= 0 {
		fps = 30
	}
	logger.Infow("exporting video", "path", path, "fps", fps, "size", size, "frames", len(frames))

	reader, writer := io.Pipe()
	viamutils.PanicCapturingGo(func() {
		for _, frame := range frames {
			if _, err := writer.Write(rgbaToRGB(frame)); err != nil {
				writer.CloseWithError(err)
				return
			}
		}
		viamutils.UncheckedErrorFunc(writer.Close)
	})

	stream := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgb24",
		"s":         fmt.Sprintf("%dx%d", size.X, size.Y),
		"framerate": fps,
	}).Output(path, ffmpeg.KwArgs{"pix_fmt": "yuv420p"}).OverWriteOutput()
	stream.Context = ctx
	if err := stream.WithInput(reader).Silent(true).Run(); err != nil {
		return errors.Wrapf(err, "cannot encode %q", path)
	}
	return nil
}

func rgbToRGBA(data []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[4*i] = data[3*i]
		img.Pix[4*i+1] = data[3*i+1]
		img.Pix[4*i+2] = data[3*i+2]
		img.Pix[4*i+3] = 0xff
	}
	return img
}

func rgbaToRGB(img *image.RGBA) []byte {
	size := img.Bounds().Size()
	out := make([]byte, size.X*size.Y*bytesPerPixel)
	for i := 0; i < size.X*size.Y; i++ {
		out[3*i] = img.Pix[4*i]
		out[3*i+1] = img.Pix[4*i+1]
		out[3*i+2] = img.Pix[4*i+2]
	}
	return out
}
