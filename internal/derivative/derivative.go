// Package derivative produces the original, medium and small variants of an uploaded image.
package derivative

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MuhamedUsman/imgdrop/internal/config"
	"github.com/MuhamedUsman/imgdrop/internal/file"
	"github.com/MuhamedUsman/imgdrop/internal/upload"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// Set is one derivative set, every path shares Name.
type Set struct {
	Name     string
	Original string
	// resized variants keyed by variant name
	Variants map[string]string
}

// Generator writes derivative sets below root, one sub directory per variant.
type Generator struct {
	root     string
	variants []config.Variant
}

func NewGenerator(imagesRoot string, variants []config.Variant) *Generator {
	return &Generator{root: imagesRoot, variants: variants}
}

// Generate copies the staged image into the original directory and writes every
// configured variant as JPEG, in order. The set is named with a fresh uuid and the
// extension of originalName. Files written before a failure are left in place.
func (g *Generator) Generate(stagedPath, originalName string) (Set, error) {
	name := uuid.NewString() + upload.Ext(originalName)
	set := Set{
		Name:     name,
		Original: filepath.Join(g.root, config.OriginalDir, name),
		Variants: make(map[string]string, len(g.variants)),
	}
	if err := file.CopyFile(stagedPath, set.Original); err != nil {
		return Set{}, fmt.Errorf("copying original: %w", err)
	}
	img, err := imaging.Open(stagedPath)
	if err != nil {
		return Set{}, fmt.Errorf("decoding image %q: %w", originalName, err)
	}
	for _, v := range g.variants {
		dst := filepath.Join(g.root, v.Name, name)
		if err = writeVariant(img, dst, v); err != nil {
			return Set{}, fmt.Errorf("writing %s variant: %w", v.Name, err)
		}
		set.Variants[v.Name] = dst
	}
	return set, nil
}

// writeVariant scales img to v.Width keeping the aspect ratio and encodes it as JPEG,
// whatever the extension of dst says.
func writeVariant(img image.Image, dst string, v config.Variant) (err error) {
	resized := imaging.Resize(img, v.Width, 0, imaging.Lanczos)
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating destination file %q: %w", dst, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing destination file %q: %w", dst, cerr)
		}
	}()
	if err = imaging.Encode(f, resized, imaging.JPEG, imaging.JPEGQuality(v.Quality)); err != nil {
		return fmt.Errorf("encoding jpeg %q: %w", dst, err)
	}
	b := resized.Bounds()
	slog.Debug("variant written", "variant", v.Name, "path", dst, "width", b.Dx(), "height", b.Dy())
	return nil
}
