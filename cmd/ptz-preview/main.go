package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"time"

	"camwatch/pkg/camera"
	"camwatch/pkg/camera/cv"
	"camwatch/pkg/camera/v4l"
	"camwatch/pkg/ptz"
	"camwatch/pkg/storage/util"
	imgutil "camwatch/pkg/utils/image"
)

func main() {
	index := flag.Int("i", 0, "device index")
	out := flag.String("o", "ptz_preview", "output directory")
	warmup := flag.Int("warmup", 15, "frames discarded before capture")
	quality := flag.Int("q", 90, "jpeg quality")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sel := camera.NewSelector([]camera.Driver{v4l.New(0), cv.New()})
	sess, err := sel.Open(ctx, *index)
	if err != nil {
		log.Fatalln(err)
	}
	frame, err := capture(sess, *warmup)
	_ = sess.Close()
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("captured %v via %s index %d", frame.Bounds().Size(), sess.Backend, sess.Index)

	if err = util.MkdirAll(*out); err != nil {
		log.Fatalln(err)
	}
	for _, e := range ptz.DefaultEffects() {
		name := filepath.Join(*out, fmt.Sprintf("ptz_%s.jpg", e.Name))
		if err = writeImage(e.Apply(frame), name, *quality); err != nil {
			log.Fatalln(err)
		}
		log.Printf("wrote %s", name)
	}
}

func capture(h camera.Handle, warmup int) (image.Image, error) {
	for i := 0; i < warmup; i++ {
		_, _ = h.Read()
		time.Sleep(50 * time.Millisecond)
	}
	return h.Read()
}

func writeImage(img image.Image, name string, quality int) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	return imgutil.EncodeJPEG(img, f, quality)
}
