package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	cameraFov    = 60
	cameraNear   = 0.5
	cameraFar    = 4000
	maxPitch     = 1.5
	lookSpeed    = 1.5 // radians per second
	defaultSpeed = 60  // blocks per second
)

// camera is a free-flying observer. Yaw 0 looks down +X; positive pitch looks
// up.
type camera struct {
	Position mgl32.Vec3
	Yaw      float64
	Pitch    float64
	Speed    float32
}

func (c *camera) forward() mgl32.Vec3 {
	cp := math.Cos(c.Pitch)
	return mgl32.Vec3{
		float32(math.Cos(c.Yaw) * cp),
		float32(math.Sin(c.Pitch)),
		float32(math.Sin(c.Yaw) * cp),
	}
}

// right is the horizontal vector to the camera's right.
func (c *camera) right() mgl32.Vec3 {
	return mgl32.Vec3{float32(-math.Sin(c.Yaw)), 0, float32(math.Cos(c.Yaw))}
}

// controls is one frame of movement intent, each axis in [-1,1].
type controls struct {
	Forward float32
	Strafe  float32
	Lift    float32
	Turn    float64
	Tilt    float64
}

func (c *camera) update(in controls, dt float64) {
	c.Yaw += in.Turn * lookSpeed * dt
	c.Pitch += in.Tilt * lookSpeed * dt
	c.Pitch = math.Max(-maxPitch, math.Min(maxPitch, c.Pitch))

	step := c.Speed * float32(dt)
	move := c.forward().Mul(in.Forward).Add(c.right().Mul(in.Strafe)).Add(mgl32.Vec3{0, in.Lift, 0})
	if move.Len() > 0 {
		c.Position = c.Position.Add(move.Normalize().Mul(step))
	}
}

func (c *camera) view() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.forward()), mgl32.Vec3{0, 1, 0})
}

func (c *camera) viewProjection(width, height int) mgl32.Mat4 {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	proj := mgl32.Perspective(mgl32.DegToRad(cameraFov), aspect, cameraNear, cameraFar)
	return proj.Mul4(c.view())
}
