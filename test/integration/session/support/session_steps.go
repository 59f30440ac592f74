package support

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/pogo-pad/internal/recognition"
	"github.com/MeKo-Tech/pogo-pad/internal/regions"
	"github.com/MeKo-Tech/pogo-pad/internal/testutil"
)

// RegisterSessionSteps registers steps that drive a session directly.
func (testCtx *TestContext) RegisterSessionSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a scan "([^"]*)" with lines:$`, testCtx.aScanWithLines)
	sc.Step(`^a broken image "([^"]*)"$`, testCtx.aBrokenImage)
	sc.Step(`^the sidecar of "([^"]*)" is removed$`, testCtx.theSidecarIsRemoved)

	sc.Step(`^I open "([^"]*)"$`, testCtx.iOpen)
	sc.Step(`^I drop "([^"]*)"$`, testCtx.iDrop)
	sc.Step(`^I run recognition again$`, testCtx.iRunRecognitionAgain)
	sc.Step(`^I click the center of line (\d+) of "([^"]*)"$`, testCtx.iClickTheCenterOfLine)
	sc.Step(`^I click at (-?\d+),(-?\d+)$`, testCtx.iClickAt)
	sc.Step(`^I dump all regions$`, testCtx.iDumpAllRegions)
	sc.Step(`^I clear the editor$`, testCtx.iClearTheEditor)
	sc.Step(`^I save the editor$`, testCtx.iSaveTheEditor)
	sc.Step(`^I save the editor as "([^"]*)"$`, testCtx.iSaveTheEditorAs)

	sc.Step(`^(\d+) files? (?:is|are) accepted$`, testCtx.filesAreAccepted)
	sc.Step(`^the current file is "([^"]*)"$`, testCtx.theCurrentFileIs)
	sc.Step(`^there is no current file$`, testCtx.thereIsNoCurrentFile)
	sc.Step(`^recognition reports (\d+) regions?$`, testCtx.recognitionReportsRegions)
	sc.Step(`^recognition ends with "([^"]*)"$`, testCtx.recognitionEndsWith)
	sc.Step(`^there are no regions$`, testCtx.thereAreNoRegions)
	sc.Step(`^the editor contains "([^"]*)"$`, testCtx.theEditorContains)
	sc.Step(`^the editor contains the lines:$`, testCtx.theEditorContainsTheLines)
	sc.Step(`^the editor is empty$`, testCtx.theEditorIsEmpty)
	sc.Step(`^the file "([^"]*)" contains the lines:$`, testCtx.theFileContainsTheLines)
	sc.Step(`^the file "([^"]*)" is empty$`, testCtx.theFileIsEmpty)
	sc.Step(`^the suggested name is "([^"]*)"$`, testCtx.theSuggestedNameIs)
}

func (testCtx *TestContext) aScanWithLines(name string, table *godog.Table) error {
	var lines []string
	for i, row := range table.Rows {
		if i == 0 && len(row.Cells) > 0 && row.Cells[0].Value == "text" {
			continue
		}
		lines = append(lines, row.Cells[0].Value)
	}
	scan, err := testutil.RenderScan(testCtx.TempDir, name, lines...)
	if err != nil {
		return err
	}
	dets := make([]recognition.Detection, len(scan.Lines))
	for i, line := range scan.Lines {
		dets[i] = recognition.Detection{Quad: regions.QuadFromRect(scan.Boxes[i]), Text: line, Confidence: 1}
	}
	if _, err := recognition.WriteSidecar(scan.Path, recognition.EngineSidecar, dets); err != nil {
		return err
	}
	testCtx.Scans[name] = scan
	return nil
}

func (testCtx *TestContext) aBrokenImage(name string) error {
	return os.WriteFile(testCtx.Path(name), []byte("this is not an image"), 0o600)
}

func (testCtx *TestContext) theSidecarIsRemoved(name string) error {
	return os.Remove(recognition.SidecarPath(testCtx.Path(name)))
}

func (testCtx *TestContext) iOpen(name string) error {
	ok, outcome := testCtx.Session.Open(context.Background(), testCtx.Path(name))
	testCtx.LastOutcome = outcome
	testCtx.LastAccepted = 0
	if ok {
		testCtx.LastAccepted = 1
	}
	return nil
}

func (testCtx *TestContext) iDrop(list string) error {
	var paths []string
	for _, name := range strings.Split(list, ",") {
		paths = append(paths, testCtx.Path(strings.TrimSpace(name)))
	}
	testCtx.LastAccepted, testCtx.LastOutcome = testCtx.Session.Drop(context.Background(), paths)
	return nil
}

func (testCtx *TestContext) iRunRecognitionAgain() error {
	testCtx.LastOutcome = testCtx.Session.Recognize(context.Background())
	return nil
}

func (testCtx *TestContext) iClickTheCenterOfLine(line int, name string) error {
	scan, err := testCtx.scan(name)
	if err != nil {
		return err
	}
	if line < 1 || line > len(scan.Boxes) {
		return fmt.Errorf("scan %q has %d lines", name, len(scan.Boxes))
	}
	x, y := scan.Center(line - 1)
	testCtx.Session.Click(x, y)
	return nil
}

func (testCtx *TestContext) iClickAt(x, y int) error {
	testCtx.Session.Click(x, y)
	return nil
}

func (testCtx *TestContext) iDumpAllRegions() error {
	testCtx.Session.DumpAll()
	return nil
}

func (testCtx *TestContext) iClearTheEditor() error {
	testCtx.Session.Clear()
	return nil
}

func (testCtx *TestContext) iSaveTheEditor() error {
	return testCtx.iSaveTheEditorAs("")
}

func (testCtx *TestContext) iSaveTheEditorAs(name string) error {
	testCtx.LastSaved, testCtx.LastError = testCtx.Session.Save(context.Background(), name)
	return testCtx.LastError
}

func (testCtx *TestContext) filesAreAccepted(n int) error {
	if testCtx.LastAccepted != n {
		return fmt.Errorf("expected %d accepted files, got %d", n, testCtx.LastAccepted)
	}
	return nil
}

func (testCtx *TestContext) theCurrentFileIs(name string) error {
	current, ok := testCtx.Session.Current()
	if !ok {
		return fmt.Errorf("expected current file %q, got none", name)
	}
	if filepath.Base(current) != name {
		return fmt.Errorf("expected current file %q, got %q", name, filepath.Base(current))
	}
	return nil
}

func (testCtx *TestContext) thereIsNoCurrentFile() error {
	if current, ok := testCtx.Session.Current(); ok {
		return fmt.Errorf("expected no current file, got %q", current)
	}
	return nil
}

func (testCtx *TestContext) recognitionReportsRegions(n int) error {
	if err := testCtx.recognitionEndsWith("recognized"); err != nil {
		return err
	}
	if testCtx.LastOutcome.Regions != n {
		return fmt.Errorf("expected %d regions, got %d", n, testCtx.LastOutcome.Regions)
	}
	return nil
}

func (testCtx *TestContext) recognitionEndsWith(status string) error {
	if got := testCtx.LastOutcome.Status.String(); got != status {
		return fmt.Errorf("expected recognition to end with %q, got %q (error: %v)", status, got, testCtx.LastOutcome.Err)
	}
	return nil
}

func (testCtx *TestContext) thereAreNoRegions() error {
	if _, regs := testCtx.Session.Regions(); len(regs) != 0 {
		return fmt.Errorf("expected no regions, got %d", len(regs))
	}
	return nil
}

func (testCtx *TestContext) theEditorContains(text string) error {
	if got := testCtx.Session.Text(); got != text {
		return fmt.Errorf("expected editor to contain %q, got %q", text, got)
	}
	return nil
}

func (testCtx *TestContext) theEditorContainsTheLines(doc *godog.DocString) error {
	return testCtx.theEditorContains(doc.Content + "\n")
}

func (testCtx *TestContext) theEditorIsEmpty() error {
	return testCtx.theEditorContains("")
}

func (testCtx *TestContext) theFileContainsTheLines(name string, doc *godog.DocString) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read saved file: %w", err)
	}
	if want := doc.Content + "\n"; string(data) != want {
		return fmt.Errorf("expected %s to contain %q, got %q", name, want, string(data))
	}
	return nil
}

func (testCtx *TestContext) theFileIsEmpty(name string) error {
	info, err := os.Stat(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to stat saved file: %w", err)
	}
	if info.Size() != 0 {
		return fmt.Errorf("expected %s to be empty, it has %d bytes", name, info.Size())
	}
	return nil
}

func (testCtx *TestContext) theSuggestedNameIs(name string) error {
	if got := testCtx.Session.SuggestedName(); got != name {
		return fmt.Errorf("expected suggested name %q, got %q", name, got)
	}
	return nil
}
