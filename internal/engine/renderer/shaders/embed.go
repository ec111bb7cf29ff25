// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// FlatVertexShader transforms positions only.
//
//go:embed flat.vert
var FlatVertexShader string

// FlatFragmentShader draws a single color, optionally shaded by the
// screen-space face normal.
//
//go:embed flat.frag
var FlatFragmentShader string

// TexturedVertexShader passes texture coordinates through.
//
//go:embed textured.vert
var TexturedVertexShader string

// TexturedFragmentShader samples the diffuse texture.
//
//go:embed textured.frag
var TexturedFragmentShader string
