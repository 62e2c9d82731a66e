package tools

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/kbinani/screenshot"
	"github.com/vcaesar/imgo"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ConserveLee/img-trace-macro/internal/config"
)

// saveTarget is one entry of the crop tool's destination list.
type saveTarget struct {
	Label string
	Path  string // a fixed file, or a directory when Dir is set
	Dir   bool
}

// saveTargets lists where a crop can go: the two configured templates, or a
// numbered spare next to them.
func saveTargets(cfg config.Config) []saveTarget {
	return []saveTarget{
		{Label: "Target (primary) - " + filepath.Base(cfg.Templates.Primary), Path: cfg.Templates.Primary},
		{Label: "Confirmation (secondary) - " + filepath.Base(cfg.Templates.Secondary), Path: cfg.Templates.Secondary},
		{Label: "Spare template", Path: filepath.Dir(cfg.Templates.Primary), Dir: true},
	}
}

// NewToolsPanel creates the UI panel for utility tools
func NewToolsPanel(win fyne.Window, cfg config.Config) fyne.CanvasObject {
	selectedDisplay := cfg.Capture.Display

	// 1. Screen Selector
	numDisplays := screenshot.NumActiveDisplays()
	var displayOptions []string
	for i := 0; i < numDisplays; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		displayOptions = append(displayOptions, fmt.Sprintf("Display %d (%dx%d)", i, bounds.Dx(), bounds.Dy()))
	}
	if len(displayOptions) == 0 {
		displayOptions = []string{"Display 0 (Default)"}
	}

	displaySelect := widget.NewSelect(displayOptions, func(selected string) {
		var id int
		if _, err := fmt.Sscanf(selected, "Display %d", &id); err == nil {
			selectedDisplay = id
		}
	})
	if selectedDisplay < len(displayOptions) {
		displaySelect.SetSelected(displayOptions[selectedDisplay])
	}

	// 2. Info Label
	infoLabel := widget.NewLabel("1. Pick a screen\n2. Click \"Capture & Crop\"\n3. Drag a box around the target\n4. Save it as a template")
	infoLabel.Alignment = fyne.TextAlignCenter

	// 3. Action Buttons
	cropBtn := widget.NewButton("Capture & Crop", func() {
		if selectedDisplay >= screenshot.NumActiveDisplays() {
			dialog.ShowError(fmt.Errorf("display %d is not available", selectedDisplay), win)
			return
		}
		bounds := screenshot.GetDisplayBounds(selectedDisplay)
		img, err := screenshot.CaptureRect(bounds)
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		showCropperWindow(img, saveTargets(cfg))
	})
	cropBtn.Importance = widget.HighImportance

	openDirBtn := widget.NewButton("Open Template Folder", func() {
		if err := openDir(filepath.Dir(cfg.Templates.Primary)); err != nil {
			dialog.ShowError(err, win)
		}
	})

	return container.NewVBox(
		widget.NewLabel("Screen:"),
		displaySelect,
		widget.NewSeparator(),
		infoLabel,
		layoutSpacer(),
		cropBtn,
		layoutSpacer(),
		widget.NewSeparator(),
		openDirBtn,
	)
}

func layoutSpacer() fyne.CanvasObject {
	return widget.NewLabel("") // rudimentary spacer
}

func openDir(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return err
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", absPath)
	case "windows":
		cmd = exec.Command("explorer", absPath)
	default:
		cmd = exec.Command("xdg-open", absPath)
	}
	return cmd.Start()
}

func showCropperWindow(fullImg image.Image, targets []saveTarget) {
	w := fyne.CurrentApp().NewWindow("Crop Template")
	w.Resize(fyne.NewSize(800, 600))

	lbl := widget.NewLabel("Drag over the image to select the target...")
	lbl.Alignment = fyne.TextAlignCenter

	saveBtn := widget.NewButton("Save Selection", nil)
	saveBtn.Disable()

	var currentSelection image.Rectangle

	cropper := NewCropperWidget(fullImg, func(rect image.Rectangle) {
		currentSelection = rect
		lbl.SetText(fmt.Sprintf("Selected: %v (%dx%d)", rect, rect.Dx(), rect.Dy()))
		saveBtn.Enable()
	})

	saveBtn.OnTapped = func() {
		if currentSelection.Empty() {
			return
		}
		cropped, err := crop(fullImg, currentSelection)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		showSaveForm(w, cropped, targets)
	}

	w.SetContent(container.NewBorder(
		nil,
		container.NewVBox(lbl, saveBtn),
		nil, nil,
		cropper,
	))
	w.Show()
}

func crop(img image.Image, r image.Rectangle) (image.Image, error) {
	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("image type %T does not support cropping", img)
	}
	return sub.SubImage(r), nil
}

func showSaveForm(win fyne.Window, img image.Image, targets []saveTarget) {
	imageObj := canvas.NewImageFromImage(img)
	imageObj.FillMode = canvas.ImageFillContain
	imageObj.SetMinSize(fyne.NewSize(100, 100))

	labels := make([]string, len(targets))
	for i, t := range targets {
		labels[i] = t.Label
	}

	nameEntry := widget.NewEntry()
	targetSelect := widget.NewSelect(labels, nil)
	targetSelect.OnChanged = func(label string) {
		t, ok := findTarget(targets, label)
		if !ok {
			return
		}
		if t.Dir {
			nameEntry.SetText(getNextFileName(t.Path))
			nameEntry.Enable()
		} else {
			nameEntry.SetText(filepath.Base(t.Path))
			nameEntry.Disable()
		}
	}
	targetSelect.SetSelected(labels[0])

	content := container.NewVBox(
		widget.NewLabel("Save this template?"),
		container.NewCenter(imageObj),
		widget.NewLabel("Save as:"),
		targetSelect,
		widget.NewLabel("File name:"),
		nameEntry,
	)

	dialog.ShowCustomConfirm("Save Template", "Save", "Cancel", content, func(confirm bool) {
		if !confirm {
			return
		}
		t, _ := findTarget(targets, targetSelect.Selected)
		path, err := savePath(t, nameEntry.Text)
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if err := saveTemplate(path, img); err != nil {
			dialog.ShowError(err, win)
			return
		}
		dialog.ShowInformation("Saved", fmt.Sprintf("Saved: %s", path), win)
	}, win)
}

func findTarget(targets []saveTarget, label string) (saveTarget, bool) {
	for _, t := range targets {
		if t.Label == label {
			return t, true
		}
	}
	return saveTarget{}, false
}

// savePath resolves the file a crop is written to.
func savePath(t saveTarget, name string) (string, error) {
	if !t.Dir {
		if t.Path == "" {
			return "", fmt.Errorf("no destination selected")
		}
		return t.Path, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("file name must not be empty")
	}
	if filepath.Base(name) != name {
		return "", fmt.Errorf("file name %q must not contain a path", name)
	}
	if filepath.Ext(name) == "" {
		name += ".png"
	}
	return filepath.Join(t.Path, name), nil
}

// saveTemplate writes img as PNG, creating the parent directory.
func saveTemplate(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return imgo.Save(path, img)
}

// getNextFileName suggests the next free numbered name in dir: 1.png, 2.png, ...
func getNextFileName(dir string) string {
	files, _ := filepath.Glob(filepath.Join(dir, "*.png"))

	maxIdx := 0
	for _, f := range files {
		base := filepath.Base(f)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		// Handle "20-11" -> parse "20"
		parts := strings.FieldsFunc(name, func(r rune) bool {
			return r < '0' || r > '9'
		})
		if len(parts) == 0 {
			continue
		}
		if idx, err := strconv.Atoi(parts[0]); err == nil && idx > maxIdx {
			maxIdx = idx
		}
	}
	return fmt.Sprintf("%d.png", maxIdx+1)
}
