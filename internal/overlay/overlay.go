package overlay

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

// Options tunes the dark-overlay cleaner.
type Options struct {
	// DarkThreshold is the grayscale value below which a pixel counts as dark.
	DarkThreshold int
	// MinAreaRatio is the minimum component area as a fraction of the page.
	MinAreaRatio float64
	// KernelSize is the window for the morphological close/open passes.
	KernelSize int
	// ContrastPct is the contrast boost applied after a removal, in percent.
	ContrastPct float64
}

// DefaultOptions matches the tuning that works well for scanned contracts:
// large solid redaction bars threshold out at 40, and anything smaller
// than 2% of the page is kept as legitimate content.
func DefaultOptions() Options {
	return Options{DarkThreshold: 40, MinAreaRatio: 0.02, KernelSize: 15, ContrastPct: 5}
}

// Clean detects large dark rectangles and fills them white to reveal
// underlying content. Returns the cleaned image and whether anything was
// removed. When nothing is removed the input image is returned unchanged.
func Clean(src image.Image, opts Options) (image.Image, bool) {
	if opts.DarkThreshold <= 0 || opts.KernelSize <= 0 {
		d := DefaultOptions()
		if opts.DarkThreshold <= 0 {
			opts.DarkThreshold = d.DarkThreshold
		}
		if opts.KernelSize <= 0 {
			opts.KernelSize = d.KernelSize
		}
		if opts.MinAreaRatio <= 0 {
			opts.MinAreaRatio = d.MinAreaRatio
		}
		if opts.ContrastPct <= 0 {
			opts.ContrastPct = d.ContrastPct
		}
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return src, false
	}

	mask := darkMask(src, opts.DarkThreshold)

	// Close then open: bridges gaps inside a bar, then drops speckles.
	r := opts.KernelSize / 2
	mask = dilate(mask, w, h, r)
	mask = erode(mask, w, h, r)
	mask = erode(mask, w, h, r)
	mask = dilate(mask, w, h, r)

	minArea := int(opts.MinAreaRatio * float64(w) * float64(h))
	boxes := componentBoxes(mask, w, h, minArea)

	var fill []image.Rectangle
	for _, b := range boxes {
		bw, bh := b.Dx(), b.Dy()
		// Overlay bars are either wide, or a thick band, or a large block.
		if float64(bw) > 0.3*float64(w) ||
			float64(bh) > 0.05*float64(h) ||
			(float64(bh) > 0.15*float64(h) && float64(bw) > 0.15*float64(w)) {
			fill = append(fill, b)
		}
	}
	if len(fill) == 0 {
		return src, false
	}

	out := imaging.Clone(src)
	white := color.NRGBA{255, 255, 255, 255}
	for _, b := range fill {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.SetNRGBA(x, y, white)
			}
		}
	}
	log.Debug().Int("regions", len(fill)).Msg("removed dark overlay regions")

	cleaned := imaging.AdjustContrast(out, opts.ContrastPct)
	return cleaned, true
}

// darkMask marks pixels whose luminance falls below threshold.
func darkMask(src image.Image, threshold int) []uint8 {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	mask := make([]uint8, w*h)
	t := uint32(threshold) << 8 // compare against 16-bit channel values
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cr, cg, cb, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// ITU-R 601 luma, same weighting OpenCV uses for RGB2GRAY
			lum := (299*cr + 587*cg + 114*cb) / 1000
			if lum < t {
				mask[y*w+x] = 1
			}
		}
	}
	return mask
}

// windowCounts returns, for every pixel, the number of set mask pixels in
// the (2r+1)-square window around it, via a summed-area table.
func windowCounts(mask []uint8, w, h, r int) []int {
	// sat[y][x] holds the sum over mask[0..y)[0..x)
	sat := make([]int, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		row := 0
		for x := 0; x < w; x++ {
			row += int(mask[y*w+x])
			sat[(y+1)*(w+1)+(x+1)] = sat[y*(w+1)+(x+1)] + row
		}
	}
	counts := make([]int, w*h)
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-r), min(h-1, y+r)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-r), min(w-1, x+r)
			counts[y*w+x] = sat[(y1+1)*(w+1)+(x1+1)] -
				sat[y0*(w+1)+(x1+1)] -
				sat[(y1+1)*(w+1)+x0] +
				sat[y0*(w+1)+x0]
		}
	}
	return counts
}

func dilate(mask []uint8, w, h, r int) []uint8 {
	counts := windowCounts(mask, w, h, r)
	out := make([]uint8, w*h)
	for i, c := range counts {
		if c > 0 {
			out[i] = 1
		}
	}
	return out
}

func erode(mask []uint8, w, h, r int) []uint8 {
	counts := windowCounts(mask, w, h, r)
	out := make([]uint8, w*h)
	for i := range counts {
		y, x := i/w, i%w
		y0, y1 := max(0, y-r), min(h-1, y+r)
		x0, x1 := max(0, x-r), min(w-1, x+r)
		if counts[i] == (y1-y0+1)*(x1-x0+1) {
			out[i] = 1
		}
	}
	return out
}

// componentBoxes labels 4-connected components of the mask and returns the
// bounding boxes of those whose pixel area reaches minArea.
func componentBoxes(mask []uint8, w, h, minArea int) []image.Rectangle {
	visited := make([]bool, w*h)
	var boxes []image.Rectangle
	var stack []int

	for start := 0; start < w*h; start++ {
		if mask[start] == 0 || visited[start] {
			continue
		}
		area := 0
		minX, minY, maxX, maxY := w, h, -1, -1
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			y, x := i/w, i%w
			area++
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
			for _, n := range [4]int{i - w, i + w, i - 1, i + 1} {
				if n < 0 || n >= w*h || visited[n] || mask[n] == 0 {
					continue
				}
				// reject horizontal wraparound
				if (n == i-1 && x == 0) || (n == i+1 && x == w-1) {
					continue
				}
				visited[n] = true
				stack = append(stack, n)
			}
		}
		if area >= minArea {
			boxes = append(boxes, image.Rect(minX, minY, maxX+1, maxY+1))
		}
	}
	return boxes
}
