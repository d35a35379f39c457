package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/trezcool/berguardian/core/wizard"
)

type (
	// stepForm renders the visible fields of a wizard step as a huh group and maps the
	// answers back onto the form state through the engine.
	stepForm struct {
		ctx      context.Context
		engine   *wizard.Engine
		uploader wizard.Uploader
		state    wizard.FormState
		options  map[string][]huh.Option[string]

		fields   []huh.Field
		shown    map[string]bool
		strs     map[string]*string
		bools    map[string]*bool
		lists    map[string]*[]string
		items    map[string][]map[string]*string
		more     map[string]*bool
		appliers []func(wizard.FormState) (wizard.FormState, error)

		// again is set when a repeater item was added and the step must be shown once more.
		again bool
	}
)

func newStepForm(ctx context.Context, engine *wizard.Engine, up wizard.Uploader, state wizard.FormState, options map[string][]huh.Option[string]) *stepForm {
	return &stepForm{
		ctx:      ctx,
		engine:   engine,
		uploader: up,
		state:    state,
		options:  options,
		shown:    make(map[string]bool),
		strs:     make(map[string]*string),
		bools:    make(map[string]*bool),
		lists:    make(map[string]*[]string),
		items:    make(map[string][]map[string]*string),
		more:     make(map[string]*bool),
	}
}

func (sf *stepForm) render(step wizard.Step) {
	for i := range step.Fields {
		f := &step.Fields[i]
		if !sf.engine.IsVisible(f, sf.state) {
			continue
		}
		sf.shown[f.Key] = true
		f.Accept(sf)
	}
}

func (sf *stepForm) group() *huh.Group {
	return huh.NewGroup(sf.fields...)
}

// apply maps the answers onto state. The first failing field is reported, the others still apply.
func (sf *stepForm) apply(state wizard.FormState) (wizard.FormState, error) {
	var firstErr error
	for _, fn := range sf.appliers {
		next, err := fn(state)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		state = next
	}
	return state, firstErr
}

// revealed reports whether state makes visible a field of step that was not rendered.
func (sf *stepForm) revealed(step wizard.Step, state wizard.FormState) bool {
	for i := range step.Fields {
		f := &step.Fields[i]
		if f.Key != "" && !sf.shown[f.Key] && sf.engine.IsVisible(f, state) {
			return true
		}
	}
	return false
}

func (sf *stepForm) bindString(f *wizard.Field) *string {
	orig := sf.state.String(f.Key)
	v := orig
	sf.strs[f.Key] = &v
	key := f.Key
	sf.appliers = append(sf.appliers, func(state wizard.FormState) (wizard.FormState, error) {
		if val := strings.TrimSpace(v); val != orig {
			return sf.engine.OnChangeContext(sf.ctx, state, key, val), nil
		}
		return state, nil
	})
	return &v
}

func (sf *stepForm) input(f *wizard.Field, validate func(string) error) {
	in := huh.NewInput().
		Title(fieldTitle(f)).
		Description(f.Help).
		Placeholder(f.Placeholder).
		Value(sf.bindString(f))
	if validate != nil {
		in = in.Validate(validate)
	}
	sf.fields = append(sf.fields, in)
}

func (sf *stepForm) VisitText(f *wizard.Field) { sf.input(f, nil) }

func (sf *stepForm) VisitTextarea(f *wizard.Field) {
	sf.fields = append(sf.fields, huh.NewText().
		Title(fieldTitle(f)).
		Description(f.Help).
		Placeholder(f.Placeholder).
		Value(sf.bindString(f)))
}

func (sf *stepForm) VisitDate(f *wizard.Field) {
	sf.input(f, func(s string) error {
		if s = strings.TrimSpace(s); s == "" {
			return nil
		}
		if _, ok := wizard.ParseDate(s); !ok {
			return fmt.Errorf("expected a date like 2024-01-31")
		}
		return nil
	})
}

func (sf *stepForm) VisitTime(f *wizard.Field) {
	sf.input(f, func(s string) error {
		if s = strings.TrimSpace(s); s == "" {
			return nil
		}
		if _, err := time.Parse("15:04", s); err != nil {
			return fmt.Errorf("expected a time like 14:30")
		}
		return nil
	})
}

func (sf *stepForm) choices(f *wizard.Field) []huh.Option[string] {
	var opts []huh.Option[string]
	if !f.Required {
		opts = append(opts, huh.NewOption("-", ""))
	}
	if f.OptionsFrom != "" {
		return append(opts, sf.options[f.OptionsFrom]...)
	}
	for _, opt := range f.Options {
		opts = append(opts, huh.NewOption(opt.Label, opt.Value))
	}
	return opts
}

func (sf *stepForm) VisitSelect(f *wizard.Field) {
	opts := sf.choices(f)
	if len(opts) == 0 || (len(opts) == 1 && !f.Required) {
		sf.input(f, nil)
		return
	}
	sf.fields = append(sf.fields, huh.NewSelect[string]().
		Title(fieldTitle(f)).
		Description(f.Help).
		Options(opts...).
		Value(sf.bindString(f)))
}

func (sf *stepForm) VisitRadio(f *wizard.Field) {
	sf.fields = append(sf.fields, huh.NewSelect[string]().
		Title(fieldTitle(f)).
		Description(f.Help).
		Options(sf.choices(f)...).
		Inline(len(f.Options) <= 3).
		Value(sf.bindString(f)))
}

func (sf *stepForm) VisitBoolean(f *wizard.Field) {
	var v bool
	if b := sf.state.Bool(f.Key); b != nil {
		v = *b
	}
	sf.bools[f.Key] = &v
	key, orig := f.Key, sf.state.Bool(f.Key)
	sf.fields = append(sf.fields, huh.NewConfirm().
		Title(fieldTitle(f)).
		Description(f.Help).
		Affirmative("Yes").
		Negative("No").
		Value(&v))
	sf.appliers = append(sf.appliers, func(state wizard.FormState) (wizard.FormState, error) {
		if orig == nil || *orig != v {
			return sf.engine.OnChangeContext(sf.ctx, state, key, wizard.Bool(v)), nil
		}
		return state, nil
	})
}

func (sf *stepForm) VisitCheckboxes(f *wizard.Field) {
	v := append([]string(nil), sf.state.Strings(f.Key)...)
	sf.lists[f.Key] = &v
	key := f.Key
	sf.fields = append(sf.fields, huh.NewMultiSelect[string]().
		Title(fieldTitle(f)).
		Description(f.Help).
		Options(huh.NewOptions(f.Items()...)...).
		Value(&v))
	sf.appliers = append(sf.appliers, func(state wizard.FormState) (wizard.FormState, error) {
		return sf.engine.OnChangeContext(sf.ctx, state, key, v), nil
	})
}

func (sf *stepForm) VisitRepeater(f *wizard.Field) {
	items := sf.state.Items(f.Key)
	values := make([]map[string]*string, len(items))
	for i, item := range items {
		sf.fields = append(sf.fields, huh.NewNote().Title(fmt.Sprintf("%s #%d", f.DisplayLabel(), i+1)))
		values[i] = make(map[string]*string, len(f.Template))
		for j := range f.Template {
			sub := &f.Template[j]
			v := item[sub.Key]
			values[i][sub.Key] = &v
			if len(sub.Options) > 0 {
				sf.fields = append(sf.fields, huh.NewSelect[string]().
					Title(fieldTitle(sub)).
					Options(sf.choices(sub)...).
					Value(&v))
			} else {
				sf.fields = append(sf.fields, huh.NewInput().
					Title(fieldTitle(sub)).
					Placeholder(sub.Placeholder).
					Value(&v))
			}
		}
	}

	sf.items[f.Key] = values
	var more bool
	sf.more[f.Key] = &more
	if f.Max == 0 || len(items) < f.Max {
		sf.fields = append(sf.fields, huh.NewConfirm().
			Title(fmt.Sprintf("Add another %s entry?", strings.ToLower(f.DisplayLabel()))).
			Affirmative("Yes").
			Negative("No").
			Value(&more))
	}

	key := f.Key
	sf.appliers = append(sf.appliers, func(state wizard.FormState) (wizard.FormState, error) {
		edited := make([]wizard.Item, len(values))
		for i, vals := range values {
			edited[i] = make(wizard.Item, len(vals))
			for k, v := range vals {
				edited[i][k] = strings.TrimSpace(*v)
			}
		}
		state = sf.engine.OnChangeContext(sf.ctx, state, key, edited)
		if !more {
			return state, nil
		}
		next, err := sf.engine.AddItem(state, key)
		if err != nil {
			return state, err
		}
		sf.again = true
		return next, nil
	})
}

func (sf *stepForm) VisitFileUpload(f *wizard.Field) {
	var paths string
	sf.strs[f.Key] = &paths
	field := f
	desc := "Comma separated file paths."
	if f.AcceptTypes != "" {
		desc += " Accepted: " + f.AcceptTypes
	}
	if atts := sf.state.Attachments(f.Key); len(atts) > 0 {
		desc += fmt.Sprintf(" %d file(s) attached.", len(atts))
	}
	sf.fields = append(sf.fields, huh.NewInput().
		Title(fieldTitle(f)).
		Description(desc).
		Value(&paths))
	sf.appliers = append(sf.appliers, func(state wizard.FormState) (wizard.FormState, error) {
		files, err := localFiles(field, paths)
		if err != nil || len(files) == 0 {
			return state, err
		}
		var uploadErr error
		next := sf.engine.AttachFiles(sf.ctx, state, field.Key, sf.uploader, files, func(err error) { uploadErr = err })
		return next, uploadErr
	})
}

func (sf *stepForm) VisitSectionTitle(f *wizard.Field) {
	sf.fields = append(sf.fields, huh.NewNote().Title(f.Label).Description(f.Description))
}

func (sf *stepForm) VisitReadonly(f *wizard.Field) {
	v := sf.state.String(f.Key)
	if v == "" {
		v = "-"
	}
	sf.fields = append(sf.fields, huh.NewNote().Title(f.DisplayLabel()).Description(v))
}

// localFiles turns comma separated paths into upload files.
func localFiles(f *wizard.Field, paths string) ([]wizard.File, error) {
	var files []wizard.File
	for _, p := range strings.Split(paths, ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		name := filepath.Base(p)
		if !f.Accepts(name) {
			return nil, fmt.Errorf("file type not accepted: %s", name)
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		path := p
		files = append(files, wizard.File{
			Name: name,
			Size: info.Size(),
			Type: mime.TypeByExtension(filepath.Ext(name)),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	return files, nil
}
