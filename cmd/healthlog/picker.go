package main

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/huh"

	"healthlog/internal/docstore"
)

// rootFolderLabel stands in for the store root in folder prompts.
const rootFolderLabel = "(top level)"

// huhPicker asks on the terminal which remote file or folder to use.
type huhPicker struct {
	in  io.Reader
	out io.Writer
}

func (p huhPicker) PickFile(ctx context.Context, files []string) (string, error) {
	if len(files) == 0 {
		return "", docstore.ErrUserCancelled
	}
	return p.choose(ctx, "Which shared file should this device use?", huh.NewOptions(files...))
}

func (p huhPicker) PickFolder(ctx context.Context, folders []string) (string, error) {
	opts := make([]huh.Option[string], 0, len(folders))
	for _, f := range folders {
		label := f
		if f == "" {
			label = rootFolderLabel
		}
		opts = append(opts, huh.NewOption(label, f))
	}
	return p.choose(ctx, "Where should the household files be created?", opts)
}

func (p huhPicker) choose(ctx context.Context, title string, opts []huh.Option[string]) (string, error) {
	var choice string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title(title).Options(opts...).Value(&choice),
	))
	if p.in != nil {
		form = form.WithInput(p.in)
	}
	if p.out != nil {
		form = form.WithOutput(p.out)
	}
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", docstore.ErrUserCancelled
		}
		return "", err
	}
	return choice, nil
}
