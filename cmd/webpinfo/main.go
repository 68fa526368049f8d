// Command webpinfo prints the header of a WebP file and optionally decodes it.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"

	"github.com/gen2brain/libwebp"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("webpinfo: ")

	format := flag.String("format", "rgba", "pixel format: rgb, rgba, bgr or bgra")
	raw := flag.String("out", "", "write decoded raw pixels to `file`")
	pngOut := flag.String("png", "", "write the decoded bitmap as PNG to `file`")
	library := flag.String("lib", "", "path to the libwebp shared library")
	wasm := flag.String("wasm", "", "path to libwebp compiled to WASM (.wasm, .wasm.gz, .wasm.zst)")
	versions := flag.Bool("versions", false, "print libwebp versions and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: webpinfo [flags] file.webp\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	var opts []libwebp.Option
	if *library != "" {
		opts = append(opts, libwebp.WithLibrary(*library))
	}
	if *wasm != "" {
		opts = append(opts, libwebp.WithWASM(*wasm))
	}

	d, err := libwebp.NewDecoder(opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	if *versions {
		if err := printVersions(os.Stdout, d); err != nil {
			log.Fatal(err)
		}
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	pf, err := libwebp.ParsePixelFormat(*format)
	if err != nil {
		log.Fatal(err)
	}

	h, err := d.GetInfo(path)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s: %dx%d\n", path, h.Width, h.Height)

	if *raw == "" && *pngOut == "" {
		return
	}

	p, err := d.DecodeFile(path, pf)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("decoded %s: %d bytes, stride %d\n", p.Format, len(p.Pix), p.Stride)

	if *raw != "" {
		if err := os.WriteFile(*raw, p.Pix, 0o644); err != nil {
			log.Fatal(err)
		}
	}

	if *pngOut != "" {
		if err := writePNG(*pngOut, p); err != nil {
			log.Fatal(err)
		}
	}
}

func printVersions(w io.Writer, d *libwebp.Decoder) error {
	dv, err := d.DecoderVersion()
	if err != nil {
		return err
	}

	ev, err := d.EncoderVersion()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "backend: %s\n", d.Backend())
	fmt.Fprintf(w, "decoder: %s\n", dv)
	fmt.Fprintf(w, "encoder: %s\n", ev)

	return nil
}

func writePNG(path string, p *libwebp.Pixels) error {
	img, err := libwebp.ToBitmap(p)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return f.Close()
}
