// Package codecdetect tells raw Annex-B H.264 apart from MP4 files, which
// have to be demuxed by another tool before playback.
package codecdetect

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"
)

// ErrContainer is returned for inputs wrapped in an MP4 container.
var ErrContainer = errors.New("codecdetect: input is an MP4 container, not a raw H.264 stream")

// Container identifies the input framing.
type Container string

const (
	ContainerAnnexB  Container = "annexb"
	ContainerMP4     Container = "mp4"
	ContainerUnknown Container = "unknown"
)

// Codec represents a video codec type.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecH265    Codec = "h265"
	CodecAV1     Codec = "av1"
	CodecUnknown Codec = "unknown"
)

// Result is what Detect found.
type Result struct {
	Container Container
	Codec     Codec
}

// Detect inspects the head of data. MP4 files yield ErrContainer along
// with the codec of their first video track.
func Detect(data []byte) (Result, error) {
	switch {
	case isAnnexB(data):
		return Result{Container: ContainerAnnexB, Codec: CodecH264}, nil
	case isMP4(data):
		codec, err := DetectFromReader(bytes.NewReader(data))
		if err != nil {
			return Result{Container: ContainerMP4, Codec: CodecUnknown}, fmt.Errorf("%w: %v", ErrContainer, err)
		}
		return Result{Container: ContainerMP4, Codec: codec}, fmt.Errorf("%w (%s video)", ErrContainer, codec)
	default:
		return Result{Container: ContainerUnknown, Codec: CodecUnknown}, nil
	}
}

// isAnnexB reports whether data opens with a start code, allowing
// leading zero bytes.
func isAnnexB(data []byte) bool {
	i := 0
	for i < len(data) && i < 64 && data[i] == 0 {
		i++
	}
	return i >= 2 && i < len(data) && data[i] == 1
}

// isMP4 looks for an ISO BMFF box type in the first header.
func isMP4(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	switch string(data[4:8]) {
	case "ftyp", "styp", "moov", "moof":
		return true
	}
	return false
}

// DetectFromReader detects the video codec of an MP4 file.
func DetectFromReader(reader io.ReadSeeker) (Codec, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return CodecUnknown, fmt.Errorf("decode mp4: %w", err)
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return CodecUnknown, fmt.Errorf("seek: %w", err)
	}

	return detectFromMP4File(mp4File)
}

func detectFromMP4File(mp4File *mp4.File) (Codec, error) {
	var traks []*mp4.TrakBox
	if mp4File.Init != nil && mp4File.Init.Moov != nil {
		traks = append(traks, mp4File.Init.Moov.Traks...)
	}
	if mp4File.Moov != nil {
		traks = append(traks, mp4File.Moov.Traks...)
	}

	for _, trak := range traks {
		if codec := detectCodecFromTrack(trak); codec != CodecUnknown {
			return codec, nil
		}
	}
	return CodecUnknown, fmt.Errorf("no video track found")
}

func detectCodecFromTrack(trak *mp4.TrakBox) Codec {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
		return CodecUnknown
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return CodecH264
		case "hvc1", "hev1":
			return CodecH265
		case "av01":
			return CodecAV1
		}
	}
	return CodecUnknown
}
