package entity

import (
	"fmt"

	"github.com/simlink/simlink/internal/core/rpc"
)

// Image is a decoded camera frame, tightly packed RGB.
type Image struct {
	Width  int
	Height int
	Pixels []uint8 // 3 bytes per pixel, row-major
}

// DepthImage holds per-pixel depth in meters.
type DepthImage struct {
	Width  int
	Height int
	Meters []float32
}

var _ Sensor = (*RGBCamera)(nil)

// RGBCamera decodes the server's BGRA pixel buffer into RGB.
type RGBCamera struct{}

func NewRGBCamera() *RGBCamera { return &RGBCamera{} }

func (*RGBCamera) Kind() string { return "camera.rgb" }

func (*RGBCamera) Decode(raw rpc.SensorRaw) (*Sample, error) {
	if err := checkImageBounds(raw); err != nil {
		return nil, err
	}
	img := &Image{
		Width:  raw.Width,
		Height: raw.Height,
		Pixels: make([]uint8, raw.Width*raw.Height*3),
	}
	for i := 0; i < raw.Width*raw.Height; i++ {
		b, g, r := raw.Data[i*4], raw.Data[i*4+1], raw.Data[i*4+2]
		img.Pixels[i*3] = r
		img.Pixels[i*3+1] = g
		img.Pixels[i*3+2] = b
	}
	return &Sample{
		Payload:   img,
		Frame:     raw.Frame,
		Timestamp: raw.Timestamp,
		Pose:      raw.Pose,
	}, nil
}

var _ Sensor = (*DepthCamera)(nil)

// DepthCamera decodes the 24-bit packed depth buffer into meters.
type DepthCamera struct {
	// MaxRange scales the normalized depth; the server encodes depth as a
	// fraction of this range.
	MaxRange float32
}

func NewDepthCamera() *DepthCamera { return &DepthCamera{MaxRange: 1000} }

func (*DepthCamera) Kind() string { return "camera.depth" }

func (d *DepthCamera) Decode(raw rpc.SensorRaw) (*Sample, error) {
	if err := checkImageBounds(raw); err != nil {
		return nil, err
	}
	img := &DepthImage{
		Width:  raw.Width,
		Height: raw.Height,
		Meters: make([]float32, raw.Width*raw.Height),
	}
	const scale = 1.0 / (256*256*256 - 1)
	for i := 0; i < raw.Width*raw.Height; i++ {
		b, g, r := raw.Data[i*4], raw.Data[i*4+1], raw.Data[i*4+2]
		normalized := (float32(r) + float32(g)*256 + float32(b)*256*256) * scale
		img.Meters[i] = normalized * d.MaxRange
	}
	return &Sample{
		Payload:   img,
		Frame:     raw.Frame,
		Timestamp: raw.Timestamp,
		Pose:      raw.Pose,
	}, nil
}

func checkImageBounds(raw rpc.SensorRaw) error {
	if raw.Width <= 0 || raw.Height <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", raw.Width, raw.Height)
	}
	if want := raw.Width * raw.Height * 4; len(raw.Data) < want {
		return fmt.Errorf("image payload too short: got %d bytes, want %d", len(raw.Data), want)
	}
	return nil
}
