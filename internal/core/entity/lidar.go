package entity

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/simlink/simlink/internal/core/rpc"
)

// LidarPoint is one return of a spinning lidar.
type LidarPoint struct {
	X, Y, Z   float32
	Intensity float32
}

// PointCloud is a decoded lidar sweep.
type PointCloud struct {
	Points []LidarPoint
}

var _ Sensor = (*Lidar)(nil)

// Lidar reshapes the raw float32 stream into points of four components.
type Lidar struct{}

func NewLidar() *Lidar { return &Lidar{} }

func (*Lidar) Kind() string { return "lidar" }

func (*Lidar) Decode(raw rpc.SensorRaw) (*Sample, error) {
	const stride = 16 // 4 float32 per point
	if len(raw.Data)%stride != 0 {
		return nil, fmt.Errorf("lidar payload of %d bytes is not a multiple of %d", len(raw.Data), stride)
	}
	cloud := &PointCloud{Points: make([]LidarPoint, len(raw.Data)/stride)}
	for i := range cloud.Points {
		off := i * stride
		cloud.Points[i] = LidarPoint{
			X:         readFloat32(raw.Data, off),
			Y:         readFloat32(raw.Data, off+4),
			Z:         readFloat32(raw.Data, off+8),
			Intensity: readFloat32(raw.Data, off+12),
		}
	}
	return &Sample{
		Payload:   cloud,
		Frame:     raw.Frame,
		Timestamp: raw.Timestamp,
		Pose:      raw.Pose,
	}, nil
}

// SemanticLidarPoint carries the hit object's identity alongside geometry.
type SemanticLidarPoint struct {
	X, Y, Z      float32
	CosIncidence float32
	ObjectID     uint32
	ObjectTag    uint32
}

// SemanticPointCloud is a decoded semantic lidar sweep.
type SemanticPointCloud struct {
	Points []SemanticLidarPoint
}

var _ Sensor = (*SemanticLidar)(nil)

// SemanticLidar decodes points of four float32 followed by two uint32.
type SemanticLidar struct{}

func NewSemanticLidar() *SemanticLidar { return &SemanticLidar{} }

func (*SemanticLidar) Kind() string { return "lidar.semantic" }

func (*SemanticLidar) Decode(raw rpc.SensorRaw) (*Sample, error) {
	const stride = 24
	if len(raw.Data)%stride != 0 {
		return nil, fmt.Errorf("semantic lidar payload of %d bytes is not a multiple of %d", len(raw.Data), stride)
	}
	cloud := &SemanticPointCloud{Points: make([]SemanticLidarPoint, len(raw.Data)/stride)}
	for i := range cloud.Points {
		off := i * stride
		cloud.Points[i] = SemanticLidarPoint{
			X:            readFloat32(raw.Data, off),
			Y:            readFloat32(raw.Data, off+4),
			Z:            readFloat32(raw.Data, off+8),
			CosIncidence: readFloat32(raw.Data, off+12),
			ObjectID:     binary.LittleEndian.Uint32(raw.Data[off+16:]),
			ObjectTag:    binary.LittleEndian.Uint32(raw.Data[off+20:]),
		}
	}
	return &Sample{
		Payload:   cloud,
		Frame:     raw.Frame,
		Timestamp: raw.Timestamp,
		Pose:      raw.Pose,
	}, nil
}

func readFloat32(data []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}
