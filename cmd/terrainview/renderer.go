package main

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"voxelterrain/internal/mesh"
	"voxelterrain/internal/placement"
	"voxelterrain/internal/world"
)

// Interleaved vertex: position (3), normal (3), color (4).
const vertexFloats = 10

func glOffset(n int) unsafe.Pointer { return unsafe.Pointer(uintptr(n)) }

type gpuMesh struct {
	vao   uint32
	vbo   uint32
	count int32
}

func (m *gpuMesh) destroy() {
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteVertexArrays(1, &m.vao)
}

// renderer uploads chunk surfaces to the GPU and draws them with the placed
// objects. It must only be used on the thread that owns the GL context, which
// is also the thread that ticks the stream manager.
type renderer struct {
	dims    world.Dimensions
	program uint32

	uViewProj    int32
	uModel       int32
	uLightDir    int32
	uFogColor    int32
	uFogDistance int32

	chunks  map[world.ChunkCoord]*gpuMesh
	objects map[uuid.UUID]*gpuMesh
	scratch []float32
}

func newRenderer(dims world.Dimensions) (*renderer, error) {
	program, err := linkProgram(meshVertSrc, meshFragSrc)
	if err != nil {
		return nil, fmt.Errorf("mesh program: %w", err)
	}
	r := &renderer{
		dims:    dims,
		program: program,
		chunks:  make(map[world.ChunkCoord]*gpuMesh),
		objects: make(map[uuid.UUID]*gpuMesh),
	}
	gl.UseProgram(program)
	r.uViewProj = gl.GetUniformLocation(program, gl.Str("uViewProj\x00"))
	r.uModel = gl.GetUniformLocation(program, gl.Str("uModel\x00"))
	r.uLightDir = gl.GetUniformLocation(program, gl.Str("uLightDir\x00"))
	r.uFogColor = gl.GetUniformLocation(program, gl.Str("uFogColor\x00"))
	r.uFogDistance = gl.GetUniformLocation(program, gl.Str("uFogDistance\x00"))
	gl.Uniform3f(r.uLightDir, 0.3, 1, 0.2)
	return r, nil
}

func (r *renderer) upload(s *mesh.Surface) *gpuMesh {
	r.scratch = r.scratch[:0]
	for i, v := range s.Vertices {
		n, c := s.Normals[i], s.Colors[i]
		r.scratch = append(r.scratch, v.X(), v.Y(), v.Z(), n.X(), n.Y(), n.Z(), c.X(), c.Y(), c.Z(), c.W())
	}

	m := &gpuMesh{count: int32(len(s.Vertices))}
	gl.GenVertexArrays(1, &m.vao)
	gl.GenBuffers(1, &m.vbo)
	gl.BindVertexArray(m.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(r.scratch)*4, gl.Ptr(r.scratch), gl.STATIC_DRAW)

	stride := int32(vertexFloats * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, glOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, glOffset(3*4))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 4, gl.FLOAT, false, stride, glOffset(6*4))
	gl.BindVertexArray(0)
	return m
}

// Upload implements stream.RenderSink.
func (r *renderer) Upload(coord world.ChunkCoord, s *mesh.Surface) {
	r.Remove(coord)
	if s.Empty() {
		return
	}
	r.chunks[coord] = r.upload(s)
}

// Remove implements stream.RenderSink.
func (r *renderer) Remove(coord world.ChunkCoord) {
	if m, ok := r.chunks[coord]; ok {
		m.destroy()
		delete(r.chunks, coord)
	}
}

// syncObjects uploads meshes for newly built objects and frees meshes of
// objects that left the registry.
func (r *renderer) syncObjects(objs []placement.Object) {
	live := make(map[uuid.UUID]struct{}, len(objs))
	for _, o := range objs {
		live[o.ID] = struct{}{}
		if _, ok := r.objects[o.ID]; ok || !o.Built() || o.Model.Surface.Empty() {
			continue
		}
		r.objects[o.ID] = r.upload(o.Model.Surface)
	}
	for id, m := range r.objects {
		if _, ok := live[id]; !ok {
			m.destroy()
			delete(r.objects, id)
		}
	}
}

func (r *renderer) draw(viewProj mgl32.Mat4, fog mgl32.Vec3, fogDistance float32, objs []placement.Object) {
	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.uViewProj, 1, false, &viewProj[0])
	gl.Uniform3f(r.uFogColor, fog.X(), fog.Y(), fog.Z())
	gl.Uniform1f(r.uFogDistance, fogDistance)

	for coord, m := range r.chunks {
		model := mgl32.Translate3D(r.dims.Origin(coord).Elem())
		r.drawMesh(m, model)
	}
	for _, o := range objs {
		m, ok := r.objects[o.ID]
		if !ok {
			continue
		}
		model := mgl32.Translate3D(o.Position.Elem()).Mul4(mgl32.Scale3D(o.Scale, o.Scale, o.Scale))
		r.drawMesh(m, model)
	}
	gl.BindVertexArray(0)
}

func (r *renderer) drawMesh(m *gpuMesh, model mgl32.Mat4) {
	gl.UniformMatrix4fv(r.uModel, 1, false, &model[0])
	gl.BindVertexArray(m.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, m.count)
}

func (r *renderer) destroy() {
	for _, m := range r.chunks {
		m.destroy()
	}
	for _, m := range r.objects {
		m.destroy()
	}
	gl.DeleteProgram(r.program)
}
