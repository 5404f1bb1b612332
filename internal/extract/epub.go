package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef  string `xml:"idref,attr"`
		Linear string `xml:"linear,attr"`
	} `xml:"spine>itemref"`
}

// extractEPUB returns one page per spine document that carries text, and the
// chapter title of each page.
func extractEPUB(data []byte) ([]string, []string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("open epub: %w", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var container epubContainer
	if err := readXML(files, "META-INF/container.xml", &container); err != nil {
		return nil, nil, err
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return nil, nil, fmt.Errorf("container.xml names no package document")
	}
	opfPath := container.Rootfiles[0].FullPath
	var pkg epubPackage
	if err := readXML(files, opfPath, &pkg); err != nil {
		return nil, nil, err
	}

	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		if strings.Contains(item.MediaType, "html") {
			hrefs[item.ID] = item.Href
		}
	}
	base := path.Dir(opfPath)
	pages := make([]string, 0, len(pkg.Spine))
	chapters := make([]string, 0, len(pkg.Spine))
	for _, ref := range pkg.Spine {
		href, ok := hrefs[ref.IDRef]
		if !ok || ref.Linear == "no" {
			continue
		}
		if unescaped, err := url.PathUnescape(href); err == nil {
			href = unescaped
		}
		name := path.Clean(path.Join(base, href))
		f, ok := files[name]
		if !ok {
			continue
		}
		title, text, err := readChapter(f)
		if err != nil {
			return nil, nil, fmt.Errorf("chapter %s: %w", name, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, text)
		chapters = append(chapters, title)
	}
	return pages, chapters, nil
}

func readXML(files map[string]*zip.File, name string, v any) error {
	f, ok := files[name]
	if !ok {
		return fmt.Errorf("missing %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

const chapterBlocks = "h1,h2,h3,h4,h5,h6,p,li,pre,blockquote,dt,dd"

func readChapter(f *zip.File) (title, text string, err error) {
	rc, err := f.Open()
	if err != nil {
		return "", "", err
	}
	defer rc.Close()
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(rc, 64<<20))
	if err != nil {
		return "", "", err
	}
	body := doc.Find("body")
	body.Find("script,style").Remove()

	title = normalizeSpace(body.Find("h1,h2,h3").First().Text())
	if title == "" {
		title = normalizeSpace(doc.Find("title").First().Text())
	}

	blocks := make([]string, 0, 32)
	body.Find(chapterBlocks).Each(func(_ int, s *goquery.Selection) {
		// Leaf blocks only, so nested lists and quotes are not repeated.
		if s.Find(chapterBlocks).Length() > 0 {
			return
		}
		if t := normalizeSpace(s.Text()); t != "" {
			blocks = append(blocks, t)
		}
	})
	if len(blocks) == 0 {
		return title, normalizeSpace(body.Text()), nil
	}
	return title, strings.Join(blocks, "\n"), nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
