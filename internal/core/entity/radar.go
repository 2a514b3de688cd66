package entity

import (
	"fmt"

	"github.com/simlink/simlink/internal/core/rpc"
	"github.com/simlink/simlink/internal/core/tf"
)

// RadarDetection is one radar return in the sensor frame.
type RadarDetection struct {
	Velocity float32 // towards the sensor, m/s
	Azimuth  float32 // radians
	Altitude float32 // radians
	Depth    float32 // meters
}

// RadarScan augments the detections with the carrying entity's linear
// velocity at capture time, so consumers can compute absolute speeds.
type RadarScan struct {
	Detections     []RadarDetection
	ParentVelocity tf.Velocity
}

var _ Sensor = (*Radar)(nil)

// Radar decodes detections of four float32 each and attaches the parent
// velocity reported alongside the payload.
type Radar struct{}

func NewRadar() *Radar { return &Radar{} }

func (*Radar) Kind() string { return "radar" }

func (*Radar) Decode(raw rpc.SensorRaw) (*Sample, error) {
	const stride = 16
	if len(raw.Data)%stride != 0 {
		return nil, fmt.Errorf("radar payload of %d bytes is not a multiple of %d", len(raw.Data), stride)
	}
	scan := &RadarScan{
		Detections:     make([]RadarDetection, len(raw.Data)/stride),
		ParentVelocity: raw.ParentVelocity,
	}
	for i := range scan.Detections {
		off := i * stride
		scan.Detections[i] = RadarDetection{
			Velocity: readFloat32(raw.Data, off),
			Azimuth:  readFloat32(raw.Data, off+4),
			Altitude: readFloat32(raw.Data, off+8),
			Depth:    readFloat32(raw.Data, off+12),
		}
	}
	return &Sample{
		Payload:   scan,
		Frame:     raw.Frame,
		Timestamp: raw.Timestamp,
		Pose:      raw.Pose,
	}, nil
}
