package diploma_test

import (
	"context"
	"fmt"
	"log"

	diploma "github.com/porticus-lab/go-diploma"
	"github.com/porticus-lab/go-diploma/config"
	"github.com/porticus-lab/go-diploma/draft"
	"github.com/porticus-lab/go-diploma/roster"
	"github.com/porticus-lab/go-diploma/templates"
)

func Example() {
	// Mount in a reused headless Chrome.
	b, err := diploma.NewBrowser(diploma.WithNoSandbox())
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close()

	cfg := config.Defaults()
	cfg.InstitutionName = "I.E. San Martín"

	exp := diploma.NewExporter(templates.MustNewRenderer(), b)
	res, err := exp.Export(context.Background(), diploma.Request{
		Mode:     diploma.ModeMultipage,
		Config:   cfg,
		Students: roster.Roster{roster.New("Ana Ruiz"), roster.New("Lu")},
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := res.WriteToFile("/tmp/"+res.Filename, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Println("saved", res.Filename)
}

func ExampleExporter_Export() {
	cfg := config.Defaults()
	cfg.InstitutionName = "Colegio Sol"

	exp := diploma.NewExporter(templates.MustNewRenderer(), draft.New(),
		diploma.WithRasterizer(diploma.Rasterizer{Scale: 0.5, Quality: 0.8}))
	res, err := exp.Export(context.Background(), diploma.Request{
		Mode:     diploma.ModeArchive,
		Config:   cfg,
		Students: roster.Roster{roster.New("José/Test"), roster.New("Lu")},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Filename, res.ContentType, res.Pages)
	// Output: Diplomas-Colegio Sol.zip application/zip 2
}

func ExampleExporter_Start() {
	exp := diploma.NewExporter(templates.MustNewRenderer(), draft.New(),
		diploma.WithRasterizer(diploma.Rasterizer{Scale: 0.5, Quality: 0.8}))
	job := exp.Start(context.Background(), diploma.Request{
		Mode:   diploma.ModeSingle,
		Config: config.Defaults(),
	})
	res, err := job.Wait()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(job.State(), res.Filename)
	// Output: completed Diploma-NOMBRE ESTUDIANTE.pdf
}

func ExampleSanitizeFilename() {
	fmt.Println(diploma.SanitizeFilename("José/Test"))
	fmt.Println(diploma.StudentFilename("???", 2))
	// Output:
	// JoseTest
	// Estudiante-3
}
