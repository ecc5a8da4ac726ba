package assets

import (
	"context"
	"image"

	"golang.org/x/sync/errgroup"
)

// SceneSources names what to load. Empty fields select the built-in quads,
// checker texture and embedded shader.
type SceneSources struct {
	Model     string
	Texture   string
	ShaderDir string
}

// Scene is everything the renderer uploads at startup.
type Scene struct {
	Mesh    *Mesh
	Texture *image.RGBA
	Shader  []uint32 // SPIR-V
}

// LoadScene loads the mesh, texture and shader concurrently. The first
// failure cancels the rest.
func LoadScene(ctx context.Context, src SceneSources) (*Scene, error) {
	var s Scene
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if src.Model == "" {
			s.Mesh = Quads()
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := LoadOBJ(src.Model)
		s.Mesh = m
		return err
	})
	g.Go(func() error {
		if src.Texture == "" {
			s.Texture = Checker(256, 32)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := LoadImage(src.Texture)
		s.Texture = img
		return err
	})
	g.Go(func() error {
		wgsl, err := LoadShader(src.ShaderDir)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Shader, err = CompileWGSL(wgsl)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}
