package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"docreader/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]models.Format{
		"book.pdf":         models.FormatPDF,
		"Report.DOCX":      models.FormatDOCX,
		"dir/novel.epub":   models.FormatEPUB,
		"archive.tar.epub": models.FormatEPUB,
	}
	for name, want := range cases {
		got, err := DetectFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	for _, name := range []string{"notes.txt", "noext", "book.doc"} {
		_, err := DetectFormat(name)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, name)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" EPUB ")
	require.NoError(t, err)
	assert.Equal(t, models.FormatEPUB, f)
	_, err = ParseFormat("rtf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

const docxTemplate = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>%s</w:body>
</w:document>`

func docxParagraph(runs ...string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	for _, r := range runs {
		b.WriteString(r)
	}
	b.WriteString("</w:p>")
	return b.String()
}

func TestExtractDOCX(t *testing.T) {
	body := docxParagraph(`<w:r><w:t>Loan</w:t></w:r>`, `<w:r><w:t xml:space="preserve"> basics</w:t></w:r>`) +
		docxParagraph(`<w:r><w:t>Rates</w:t><w:tab/><w:t>4%</w:t><w:br/><w:t>ﬁxed</w:t></w:r>`)
	data := buildZip(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   fmt.Sprintf(docxTemplate, body),
	}, "[Content_Types].xml", "word/document.xml")

	doc, err := Extract(data, models.FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, models.FormatDOCX, doc.Format)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, "Loan basics\nRates\t4%\nfixed", doc.Pages[0])
	assert.Nil(t, doc.Chapters)
	assert.Len(t, doc.ID, 64)
}

func TestExtractDOCXPaginates(t *testing.T) {
	var paras strings.Builder
	for i := 0; i < 120; i++ {
		paras.WriteString(docxParagraph(fmt.Sprintf(`<w:r><w:t>Paragraph %03d talks about mortgage fees and rates.</w:t></w:r>`, i)))
	}
	data := buildZip(t, map[string]string{"word/document.xml": fmt.Sprintf(docxTemplate, paras.String())}, "word/document.xml")

	doc, err := Extract(data, models.FormatDOCX)
	require.NoError(t, err)
	require.Greater(t, len(doc.Pages), 2)
	for _, p := range doc.Pages {
		assert.LessOrEqual(t, len([]rune(p)), DocxPageSize)
	}
	assert.True(t, strings.HasPrefix(doc.Pages[0], "Paragraph 000"))
}

func TestExtractDOCXWithoutText(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": fmt.Sprintf(docxTemplate, docxParagraph())}, "word/document.xml")
	_, err := Extract(data, models.FormatDOCX)
	assert.ErrorIs(t, err, ErrNoTextFound)
}

func TestExtractDOCXNotAZip(t *testing.T) {
	_, err := Extract([]byte("plain text"), models.FormatDOCX)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoTextFound)
}

func buildEPUB(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{
		"mimetype": "application/epub+zip",
		"META-INF/container.xml": `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`,
		"OEBPS/content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest>
    <item id="cover" href="cover.xhtml" media-type="application/xhtml+xml"/>
    <item id="c1" href="text/chapter%201.xhtml" media-type="application/xhtml+xml"/>
    <item id="c2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
  </manifest>
  <spine>
    <itemref idref="cover"/>
    <itemref idref="c1"/>
    <itemref idref="css"/>
    <itemref idref="c2"/>
  </spine>
</package>`,
		"OEBPS/cover.xhtml": `<html><head><title>Cover</title></head><body><img src="cover.png"/></body></html>`,
		"OEBPS/text/chapter 1.xhtml": `<html><head><title>ignored</title></head><body>
<h1>Loan Basics</h1>
<p>A loan is   money you borrow.</p>
<ul><li><p>Principal</p></li><li>Interest</li></ul>
<script>var x = 1;</script>
</body></html>`,
		"OEBPS/text/ch2.xhtml": `<html><head><title>Mortgage Fees</title></head><body><div>Fees add up quickly.</div></body></html>`,
		"OEBPS/style.css":      `p { margin: 0 }`,
	}
	return buildZip(t, files, "mimetype", "META-INF/container.xml", "OEBPS/content.opf", "OEBPS/cover.xhtml",
		"OEBPS/text/chapter 1.xhtml", "OEBPS/text/ch2.xhtml", "OEBPS/style.css")
}

func TestExtractEPUB(t *testing.T) {
	doc, err := Extract(buildEPUB(t), models.FormatEPUB)
	require.NoError(t, err)
	assert.Equal(t, models.FormatEPUB, doc.Format)
	require.Len(t, doc.Pages, 2, "the image-only cover is skipped")
	assert.Equal(t, []string{"Loan Basics", "Mortgage Fees"}, doc.Chapters)
	assert.Equal(t, "Loan Basics\nA loan is money you borrow.\nPrincipal\nInterest", doc.Pages[0])
	assert.Equal(t, "Fees add up quickly.", doc.Pages[1])
}

func TestExtractEPUBMissingContainer(t *testing.T) {
	data := buildZip(t, map[string]string{"mimetype": "application/epub+zip"}, "mimetype")
	_, err := Extract(data, models.FormatEPUB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "container.xml")
}

func TestExtractUnsupported(t *testing.T) {
	_, err := Extract([]byte("x"), models.Format("rtf"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
