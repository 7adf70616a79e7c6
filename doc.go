// Package diploma turns a roster of students into printable diplomas.
//
// Each student is rendered through a design of the templates package into
// a fixed-size HTML document, laid out off-screen by a [Mounter], captured
// as a JPEG by a [Rasterizer] and drawn onto a full A4 landscape page by an
// [Assembler]. An [Exporter] drives the pipeline for a whole roster.
//
// # Mounting
//
// [Browser] mounts documents in a reused headless Chrome, one tab each:
//
//	b, err := diploma.NewBrowser(diploma.WithNoSandbox())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
// Chrome or Chromium must be available in PATH, or use [WithAutoDownload].
// The draft sub-package provides a browser-less Mounter that draws a
// simplified layout in pure Go.
//
// # Exporting
//
//	exp := diploma.NewExporter(templates.MustNewRenderer(), b)
//	res, err := exp.Export(ctx, diploma.Request{
//	    Mode:     diploma.ModeMultipage,
//	    Config:   cfg,
//	    Students: students,
//	})
//	err = res.WriteToFile(res.Filename, 0o644)
//
// There are three modes:
//
//   - [ModeSingle]: the student at Request.Index, as "Diploma-{name}.pdf".
//   - [ModeMultipage]: every student with a name, one page each, as
//     "Diplomas-{institution}.pdf".
//   - [ModeArchive]: one PDF per student inside "Diplomas-{institution}.zip".
//
// An empty roster exports the placeholder student; an archive of an empty
// roster falls back to a multipage PDF.
//
// Exports are all-or-nothing: the first failure aborts and is reported as a
// [*StageError]. [Exporter.Start] runs an export in the background as a
// [Job] that can be polled and cancelled.
//
// A [Result] gives flexible access to the output:
//
//	res.Bytes()                       // []byte
//	res.Base64()                      // base64 string (RFC 4648)
//	res.Reader()                      // *bytes.Reader
//	res.WriteTo(w)                    // io.WriterTo
//	res.WriteToFile("out.pdf", 0o644) // write to disk
package diploma
