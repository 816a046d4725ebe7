// Package archive resolves (category, location) pairs to tiled
// isochrone archives produced by the offline generation pipeline.
package archive

import (
	"fmt"
	"strings"
)

// Extension is the packaged tile archive suffix.
const Extension = ".pmtiles"

// Ref points at one tiled archive. Name follows the generation
// pipeline's convention: {category}_{region}_isochrones.
type Ref struct {
	Name string
	URL  string
}

// SourceLayer is the archive-internal layer name. By contract with the
// tile generation process it equals the filename minus the extension.
func (r Ref) SourceLayer() string {
	return strings.TrimSuffix(r.Name, Extension)
}

// Filename is the archive file name including the extension.
func (r Ref) Filename() string {
	if strings.HasSuffix(r.Name, Extension) {
		return r.Name
	}
	return r.Name + Extension
}

func newRef(baseURL, category, region string) Ref {
	name := fmt.Sprintf("%s_%s_isochrones", category, region)
	return Ref{
		Name: name,
		URL:  strings.TrimRight(baseURL, "/") + "/" + name + Extension,
	}
}
