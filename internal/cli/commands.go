package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"docflow/internal/collection"
	"docflow/internal/model"
	"docflow/internal/policy"
	"docflow/internal/remote"
	"docflow/internal/session"
	"docflow/internal/viewer"
)

const timeLayout = "2006-01-02 15:04"

// Root builds the docflow command tree. Commands run under ctx.
func (a *App) Root(ctx context.Context) *Command {
	return &Command{
		Name:    "docflow",
		Summary: "Work with documents in the docflow review workflow.",
		Subcommands: []*Command{
			a.loginCommand(ctx),
			a.registerCommand(ctx),
			a.logoutCommand(),
			a.whoamiCommand(),
			a.listCommand(),
			a.showCommand(ctx),
			a.createCommand(ctx),
			a.renameCommand(ctx),
			a.actionCommand(ctx, "submit", policy.SubmitForReview),
			a.actionCommand(ctx, "revoke", policy.Revoke),
			a.actionCommand(ctx, "start-review", policy.StartReview),
			a.actionCommand(ctx, "approve", policy.Approve),
			a.actionCommand(ctx, "decline", policy.Decline),
			a.actionCommand(ctx, "delete", policy.Delete),
			a.replaceCommand(ctx),
			a.viewCommand(ctx),
			a.browseCommand(ctx),
		},
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

func (a *App) requireSession() error {
	if !a.Session.Authenticated() {
		return fmt.Errorf("%w: run 'docflow login' first", session.ErrNotAuthenticated)
	}
	return nil
}

func (a *App) loginCommand(ctx context.Context) *Command {
	var email, password string
	return &Command{
		Name:    "login",
		Summary: "Sign in and keep the access token",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("login")
			fs.StringVarP(&email, "email", "e", "", "account email")
			fs.StringVar(&password, "password", "", "password (prompted when omitted)")
			return fs
		},
		Run: func(args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				var err error
				if password, err = a.readSecret("Password"); err != nil {
					return err
				}
			}
			token, err := a.Client.Login(ctx, email, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := a.Session.SignIn(token); err != nil {
				return err
			}
			return a.printWhoami()
		},
	}
}

func (a *App) registerCommand(ctx context.Context) *Command {
	var email, password, name, role string
	return &Command{
		Name:    "register",
		Summary: "Create an account and sign in",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("register")
			fs.StringVarP(&email, "email", "e", "", "account email")
			fs.StringVar(&name, "name", "", "full name")
			fs.StringVar(&role, "role", string(model.RoleUser), "USER or REVIEWER")
			fs.StringVar(&password, "password", "", "password (prompted when omitted)")
			return fs
		},
		Run: func(args []string) error {
			r := model.Role(strings.ToUpper(role))
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if password == "" {
				var err error
				if password, err = a.readSecret("Password"); err != nil {
					return err
				}
			}
			token, err := a.Client.Register(ctx, remote.RegisterRequest{
				Email:    email,
				Password: password,
				FullName: name,
				Role:     r,
			})
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			if err := a.Session.SignIn(token); err != nil {
				return err
			}
			return a.printWhoami()
		},
	}
}

func (a *App) logoutCommand() *Command {
	return &Command{
		Name:    "logout",
		Summary: "Forget the access token and role",
		Run: func(args []string) error {
			if err := a.Session.Close(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "signed out")
			return nil
		},
	}
}

func (a *App) whoamiCommand() *Command {
	return &Command{
		Name:    "whoami",
		Summary: "Show the signed-in user",
		Run: func(args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			return a.printWhoami()
		},
	}
}

func (a *App) printWhoami() error {
	u, ok := a.Session.User()
	if !ok {
		return session.ErrNotAuthenticated
	}
	fmt.Fprintf(a.out, "%s <%s> as %s\n", u.Name, u.Email, a.Session.Role())
	return nil
}

func (a *App) listCommand() *Command {
	var page, size int
	var sort string
	return &Command{
		Name:    "list",
		Summary: "List the documents visible to you",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("list")
			fs.IntVarP(&page, "page", "p", 1, "page number, from 1")
			fs.IntVarP(&size, "size", "n", a.cfg.PageSize, "documents per page")
			fs.StringVar(&sort, "sort", "", "field,dir with field one of createdAt, updatedAt, name, status")
			return fs
		},
		Run: func(args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			a.Docs.SetQuery(model.PageQuery{Page: page - 1, Size: size, Sort: sort})
			a.Docs.Wait()

			snap := a.Docs.Snapshot()
			if snap.FetchFailed() {
				return snap.Err
			}
			a.resolveRole(snap.Page)
			a.printPage(snap)
			return nil
		},
	}
}

// resolveRole falls back to inferring the role from a listing when the
// token did not carry one.
func (a *App) resolveRole(p model.Page) {
	if u, ok := a.Session.User(); ok && u.Role.Valid() {
		return
	}
	if role, ok := a.Session.InferRole(p); ok {
		a.logger.Debug("role_inferred", "role", role)
	}
}

func (a *App) printPage(snap collection.Snapshot) {
	if len(snap.Page.Results) == 0 {
		fmt.Fprintln(a.out, "no documents")
		return
	}
	withCreator := snap.Page.Results[0].Creator != nil

	tw := tabwriter.NewWriter(a.out, 2, 0, 2, ' ', 0)
	if withCreator {
		fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tUPDATED\tCREATOR")
	} else {
		fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tUPDATED")
	}
	for _, d := range snap.Page.Results {
		row := fmt.Sprintf("%s\t%s\t%s\t%s", d.ID, d.Name, d.Status, d.UpdatedAt.Local().Format(timeLayout))
		if withCreator {
			creator := ""
			if d.Creator != nil {
				creator = d.Creator.FullName
			}
			row += "\t" + creator
		}
		fmt.Fprintln(tw, row)
	}
	tw.Flush()
	fmt.Fprintf(a.out, "page %d of %d, %d documents\n", snap.Query.Page+1, snap.Pages(), snap.Page.Count)
}

func (a *App) document(ctx context.Context, args []string) (*model.Document, error) {
	if err := exactArgs(args, 1, "a document id"); err != nil {
		return nil, err
	}
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	return a.Client.Get(ctx, args[0])
}

func (a *App) showCommand(ctx context.Context) *Command {
	return &Command{
		Name:    "show",
		Summary: "Show one document and what you may do with it",
		Usage:   "docflow show <id>",
		Run: func(args []string) error {
			doc, err := a.document(ctx, args)
			if err != nil {
				return err
			}
			a.printDocument(doc)
			return nil
		},
	}
}

func (a *App) printDocument(d *model.Document) {
	tw := tabwriter.NewWriter(a.out, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", d.ID)
	fmt.Fprintf(tw, "name:\t%s\n", d.Name)
	fmt.Fprintf(tw, "status:\t%s\n", d.Status)
	if d.Creator != nil {
		fmt.Fprintf(tw, "creator:\t%s <%s>\n", d.Creator.FullName, d.Creator.Email)
	}
	fmt.Fprintf(tw, "created:\t%s\n", d.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(tw, "updated:\t%s\n", d.UpdatedAt.Local().Format(timeLayout))

	var labels []string
	for _, act := range policy.Allowed(a.Session.Role(), d.Status) {
		labels = append(labels, act.Label())
	}
	if len(labels) == 0 {
		labels = []string{"none"}
	}
	fmt.Fprintf(tw, "actions:\t%s\n", strings.Join(labels, ", "))
	tw.Flush()
}

func openPDF(path string) (remote.File, func(), error) {
	if path == "" {
		return remote.File{}, nil, errors.New("--file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return remote.File{}, nil, err
	}
	return remote.File{Filename: filepath.Base(path), Content: f}, func() { f.Close() }, nil
}

func (a *App) createCommand(ctx context.Context) *Command {
	var name, file string
	return &Command{
		Name:    "create",
		Summary: "Upload a PDF as a new draft",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("create")
			fs.StringVar(&name, "name", "", "document name (3 to 100 characters)")
			fs.StringVarP(&file, "file", "f", "", "path to the PDF")
			return fs
		},
		Run: func(args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if name == "" && file != "" {
				name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			}
			upload, done, err := openPDF(file)
			if err != nil {
				return err
			}
			defer done()

			doc, err := a.Gateway.Create(ctx, name, upload)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "created %s (%s)\n", doc.ID, doc.Status)
			return nil
		},
	}
}

func (a *App) renameCommand(ctx context.Context) *Command {
	var name string
	return &Command{
		Name:    "rename",
		Summary: "Change the name of a document",
		Usage:   "docflow rename <id> --name <name>",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("rename")
			fs.StringVar(&name, "name", "", "new name (3 to 100 characters)")
			return fs
		},
		Run: func(args []string) error {
			doc, err := a.document(ctx, args)
			if err != nil {
				return err
			}
			updated, err := a.Gateway.UpdateName(ctx, *doc, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "renamed %s to %q\n", updated.ID, updated.Name)
			return nil
		},
	}
}

func (a *App) replaceCommand(ctx context.Context) *Command {
	var file string
	return &Command{
		Name:    "replace",
		Summary: "Replace the PDF of a draft",
		Usage:   "docflow replace <id> --file <path>",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("replace")
			fs.StringVarP(&file, "file", "f", "", "path to the PDF")
			return fs
		},
		Run: func(args []string) error {
			doc, err := a.document(ctx, args)
			if err != nil {
				return err
			}
			upload, done, err := openPDF(file)
			if err != nil {
				return err
			}
			defer done()

			if _, err := a.Gateway.ReplaceContent(ctx, *doc, upload); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "replaced content of %s\n", doc.ID)
			return nil
		},
	}
}

// actionCommand runs a menu action that needs no input besides the document.
func (a *App) actionCommand(ctx context.Context, name string, act policy.Action) *Command {
	return &Command{
		Name:    name,
		Summary: act.Label(),
		Usage:   "docflow " + name + " <id>",
		Run: func(args []string) error {
			doc, err := a.document(ctx, args)
			if err != nil {
				return err
			}
			updated, err := a.Gateway.Perform(ctx, *doc, act)
			if err != nil {
				return err
			}
			if updated == nil {
				fmt.Fprintf(a.out, "%s: done\n", doc.ID)
				return nil
			}
			fmt.Fprintf(a.out, "%s: %s -> %s\n", doc.ID, doc.Status, updated.Status)
			return nil
		},
	}
}

func (a *App) viewCommand(ctx context.Context) *Command {
	var out string
	return &Command{
		Name:    "view",
		Summary: "Load a document in the terminal viewer",
		Usage:   "docflow view <id> [--out file.pdf]",
		Flags: func() *pflag.FlagSet {
			fs := newFlagSet("view")
			fs.StringVarP(&out, "out", "o", "", "also save the PDF to this path")
			return fs
		},
		Run: func(args []string) error {
			doc, err := a.document(ctx, args)
			if err != nil {
				return err
			}

			screen := &viewer.Screen{}
			v := viewer.New(&viewer.TerminalEngine{Fetcher: a.Client}, screen, a.cfg.APIURL, a.logger)
			defer v.Dispose()

			if err := v.Open(ctx, *doc, a.Session.Role()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (%s)\n%s\n", doc.Name, doc.Status, screen.String())

			if out == "" {
				return nil
			}
			td, ok := v.Instance().(*viewer.TerminalDocument)
			if !ok {
				return errors.New("viewer has no document loaded")
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if _, err := td.WriteTo(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "saved %s\n", out)
			return nil
		},
	}
}

func (a *App) browseCommand(ctx context.Context) *Command {
	return &Command{
		Name:    "browse",
		Summary: "Browse and act on documents interactively",
		Run: func(args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if a.browse == nil {
				return errors.New("interactive browser not available")
			}
			return a.browse(ctx, a)
		},
	}
}
