package generator

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math/rand"

	"github.com/ivlev/planetreel/internal/system"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

// Placeholder renders frames locally without a model: a seeded two-colour
// gradient with a QR code carrying the seed and prompt. It exists for dry
// runs of the pipeline and needs no token. Output depends only on the request.
type Placeholder struct{}

func NewPlaceholder() *Placeholder {
	return &Placeholder{}
}

func (p *Placeholder) Probe(ctx context.Context) error {
	return ctx.Err()
}

func (p *Placeholder) Generate(ctx context.Context, r Request) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("placeholder: invalid size %dx%d", r.Width, r.Height)
	}

	rng := rand.New(rand.NewSource(r.Seed))
	top := randomColor(rng)
	bottom := randomColor(rng)

	img := system.GetFrame(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		c := lerp(top, bottom, float64(y)/float64(r.Height))
		for x := 0; x < r.Width; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	side := min(r.Width, r.Height) / 3
	if side < 21 {
		// Too small for a readable code; the gradient alone still varies per seed.
		return img, nil
	}

	qr, err := qrcode.New(fmt.Sprintf("seed=%d\n%s", r.Seed, r.Prompt), qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("placeholder: qr code: %w", err)
	}
	code := qr.Image(side)
	margin := side / 8
	dst := image.Rect(margin, margin, margin+side, margin+side)
	draw.Draw(img, dst, code, code.Bounds().Min, draw.Src)

	return img, nil
}

func randomColor(rng *rand.Rand) color.RGBA {
	return color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255}
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}
