// Package rec contains an image recorder used to automatically save
// acquired tiles and stitched composites to disk with incrementing
// filenames in yyyy-mm-dd subfolders.
package rec

import (
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/astrogo/fitsio"
	"golang.org/x/image/tiff"
)

// Recorder writes image sequences below Root.  It is not thread safe.
type Recorder struct {
	// Root is the root path
	Root string

	// Prefix is the prefix for the filenames
	Prefix string

	// Enabled allows consumers to disable recording without tearing the
	// recorder down
	Enabled bool

	counter  int
	timeFldr string
}

func (r *Recorder) updateFolder() {
	now := time.Now()
	y, m, d := now.Year(), now.Month(), now.Day()
	r.timeFldr = fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

func (r *Recorder) mkDir() (string, error) {
	fldr := path.Join(r.Root, r.timeFldr)
	err := os.MkdirAll(fldr, 0777)
	return fldr, err
}

// Incr updates the filename counter; it scans the folder to do so.  If
// there is an error, the counter is not incremented.
func (r *Recorder) Incr() {
	r.updateFolder()
	dn, _ := r.mkDir()
	files, err := os.ReadDir(dn)
	if err != nil {
		return
	}
	count := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		fn := file.Name()
		ext := path.Ext(fn)
		if ext != ".fits" && ext != ".tiff" {
			continue
		}
		if !strings.HasPrefix(fn, r.Prefix) {
			continue
		}
		bit := strings.TrimSuffix(strings.TrimPrefix(fn, r.Prefix), ext)
		n, err := strconv.Atoi(bit)
		if err != nil {
			continue
		}
		if count < n {
			count = n
		}
	}
	r.counter = count + 1
}

// create opens the next file in the sequence for writing.
func (r *Recorder) create(ext string) (*os.File, error) {
	r.updateFolder()
	fldr, err := r.mkDir()
	if err != nil {
		return nil, err
	}
	fn := path.Join(fldr, fmt.Sprintf("%s%06d%s", r.Prefix, r.counter, ext))
	return os.Create(fn)
}

// Card is one metadata entry attached to a recorded FITS file, typically
// the stage position and the name of the object the frame belongs to.
type Card struct {
	Name    string
	Value   interface{}
	Comment string
}

// SaveFITS records img with metadata as the next file in the sequence and
// returns the path written.
func (r *Recorder) SaveFITS(img *image.Gray16, meta []Card) (string, error) {
	if !r.Enabled {
		return "", nil
	}
	f, err := r.create(".fits")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteFITS(f, img, meta); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// SaveTIFF records img as the next file in the sequence and returns the
// path written.
func (r *Recorder) SaveTIFF(img image.Image) (string, error) {
	if !r.Enabled {
		return "", nil
	}
	f, err := r.create(".tiff")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// WriteFITS streams img to w as a 16-bit FITS image.  Unsigned pixels are
// shifted into the signed range with the conventional BZERO of 32768.
func WriteFITS(w io.Writer, img *image.Gray16, meta []Card) error {
	cards := make([]fitsio.Card, 0, len(meta)+2)
	for _, c := range meta {
		cards = append(cards, fitsio.Card{Name: c.Name, Value: c.Value, Comment: c.Comment})
	}
	cards = append(cards,
		fitsio.Card{Name: "BZERO", Value: 32768},
		fitsio.Card{Name: "BSCALE", Value: 1.0})

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(16, []int{width, height})
	defer im.Close()
	if err := im.Header().Append(cards...); err != nil {
		return err
	}

	ints := make([]int16, width*height)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			ints[i] = int16(img.Gray16At(x, y).Y - 32768)
			i++
		}
	}
	if err := im.Write(ints); err != nil {
		return err
	}
	return fits.Write(im)
}
