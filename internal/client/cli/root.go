package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cvkitdev/cvkit/internal/client/session"
)

const helpText = `Commands:
  register            create an account
  login               log in to an existing account
  logout              log out
  whoami              show the current profile
  profile             update profile fields
  refresh             refetch the profile from the server
  generate            create a resume from a prompt
  list                list your resumes
  show <id|slug>      print a resume
  rename <id>         change a resume title
  delete <id>         delete a resume
  duplicate <id>      copy a resume
  improve <id>        rewrite one section of a resume
  pdf <id>            render a resume to PDF
  help                show this help
  exit                quit`

// statusLabel renders the session state for the prompt.
func (a *App) statusLabel() string {
	switch a.session.State() {
	case session.StateAuthenticated:
		if u := a.session.CurrentUser(); u != nil {
			return u.DisplayName()
		}
		return "authenticated"
	case session.StateVerifying:
		return "verifying"
	case session.StateUnresolved:
		return "loading"
	default:
		return "anonymous"
	}
}

// Root runs the command loop until exit or EOF.
func (a *App) Root(ctx context.Context) {
	fmt.Println("cvkit shell. Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("cvkit (%s)> ", a.statusLabel())
		if !scanner.Scan() {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help", "h":
			fmt.Println(helpText)
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "logout":
			a.Logout(ctx)
		case "whoami":
			_ = a.Whoami(ctx)
		case "profile":
			_ = a.Profile(ctx)
		case "refresh":
			_ = a.Refresh(ctx)
		case "generate":
			_ = a.Generate(ctx)
		case "list", "ls":
			_ = a.List(ctx)
		case "show":
			if id, ok := requireArg(args, "show <id|slug>"); ok {
				_ = a.Show(ctx, id)
			}
		case "rename":
			if id, ok := requireArg(args, "rename <id>"); ok {
				_ = a.Rename(ctx, id)
			}
		case "delete":
			if id, ok := requireArg(args, "delete <id>"); ok {
				_ = a.Delete(ctx, id)
			}
		case "duplicate":
			if id, ok := requireArg(args, "duplicate <id>"); ok {
				_ = a.Duplicate(ctx, id)
			}
		case "improve":
			if id, ok := requireArg(args, "improve <id>"); ok {
				_ = a.Improve(ctx, id)
			}
		case "pdf":
			if id, ok := requireArg(args, "pdf <id>"); ok {
				_ = a.PDF(ctx, id)
			}
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			return
		default:
			fmt.Printf("Unknown command %q. Type 'help' for commands.\n", cmd)
		}
	}
}

func requireArg(args []string, usage string) (string, bool) {
	if len(args) != 1 {
		fmt.Println("Usage:", usage)
		return "", false
	}
	return args[0], true
}
