// Command todoctl is a terminal front end for the todo API.
//
//	todoctl [-server URL] [-token-file PATH] <command> [flags] [args]
//
// Commands:
//
//	register -email E -password P -name N
//	login -email E -password P
//	logout
//	whoami
//	list
//	add [-d DESCRIPTION] TITLE...
//	done ID | undone ID | toggle ID
//	edit [-title T] [-d DESCRIPTION] ID
//	rm ID
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/isdelr/todo-be/internal/client"
	"github.com/isdelr/todo-be/internal/models"
)

const defaultServer = "http://localhost:5000/api"

var errUsage = errors.New("usage: todoctl [-server URL] [-token-file PATH] register|login|logout|whoami|list|add|done|undone|toggle|edit|rm")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "todoctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("todoctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	server := fs.String("server", envOr("TODOCTL_SERVER", defaultServer), "API base URL")
	tokenFile := fs.String("token-file", os.Getenv("TODOCTL_TOKEN_FILE"), "where the session token is kept")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	path := *tokenFile
	if path == "" {
		p, err := client.DefaultTokenPath()
		if err != nil {
			return err
		}
		path = p
	}
	c := client.New(*server, client.NewFileTokenStore(path))

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "register":
		return register(ctx, c, rest, out)
	case "login":
		return login(ctx, c, rest, out)
	case "logout":
		if err := c.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out.")
		return nil
	case "whoami":
		user, err := c.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s <%s>\n", user.Name, user.Email)
		return nil
	case "list":
		return list(ctx, c, out)
	case "add":
		return add(ctx, c, rest, out)
	case "done", "undone":
		id, err := oneID(cmd, rest)
		if err != nil {
			return err
		}
		completed := cmd == "done"
		todo, err := c.UpdateTodo(ctx, id, models.TodoPatch{Completed: &completed})
		if err != nil {
			return err
		}
		printTodo(out, todo)
		return nil
	case "toggle":
		return toggle(ctx, c, rest, out)
	case "edit":
		return edit(ctx, c, rest, out)
	case "rm":
		id, err := oneID(cmd, rest)
		if err != nil {
			return err
		}
		if err := c.DeleteTodo(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(out, "Deleted", id)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

func register(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "")
	password := fs.String("password", "", "")
	name := fs.String("name", "", "")
	if err := fs.Parse(args); err != nil {
		return errors.New("usage: todoctl register -email E -password P -name N")
	}
	user, err := c.Register(ctx, *email, *password, *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Registered and logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func login(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "")
	password := fs.String("password", "", "")
	if err := fs.Parse(args); err != nil {
		return errors.New("usage: todoctl login -email E -password P")
	}
	user, err := c.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func list(ctx context.Context, c *client.Client, out io.Writer) error {
	todos, err := c.ListTodos(ctx)
	if err != nil {
		return err
	}
	if len(todos) == 0 {
		fmt.Fprintln(out, "No todos yet.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, todo := range todos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", checkbox(todo), todo.ID, todo.Title, todo.Description)
	}
	return tw.Flush()
}

func add(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	description := fs.String("d", "", "")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		return errors.New("usage: todoctl add [-d DESCRIPTION] TITLE...")
	}
	todo, err := c.CreateTodo(ctx, strings.Join(fs.Args(), " "), *description)
	if err != nil {
		return err
	}
	printTodo(out, todo)
	return nil
}

func toggle(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	id, err := oneID("toggle", args)
	if err != nil {
		return err
	}
	todos, err := c.ListTodos(ctx)
	if err != nil {
		return err
	}
	for _, todo := range todos {
		if todo.ID == id {
			updated, err := c.ToggleTodo(ctx, todo)
			if err != nil {
				return err
			}
			printTodo(out, updated)
			return nil
		}
	}
	return errors.New("todo not found")
}

func edit(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var patch models.TodoPatch
	fs.Func("title", "", func(s string) error { patch.Title = &s; return nil })
	fs.Func("d", "", func(s string) error { patch.Description = &s; return nil })
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errors.New("usage: todoctl edit [-title T] [-d DESCRIPTION] ID")
	}
	if patch.Title == nil && patch.Description == nil {
		return errors.New("nothing to change, pass -title or -d")
	}
	todo, err := c.UpdateTodo(ctx, fs.Arg(0), patch)
	if err != nil {
		return err
	}
	printTodo(out, todo)
	return nil
}

func oneID(cmd string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: todoctl %s ID", cmd)
	}
	return args[0], nil
}

func checkbox(todo models.Todo) string {
	if todo.Completed {
		return "[x]"
	}
	return "[ ]"
}

func printTodo(out io.Writer, todo models.Todo) {
	fmt.Fprintf(out, "%s %s  %s\n", checkbox(todo), todo.ID, todo.Title)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
