package main

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/brickfolio/brickfolio/internal/analytics"
	"github.com/brickfolio/brickfolio/internal/api"
	"github.com/brickfolio/brickfolio/internal/collection"
	"github.com/brickfolio/brickfolio/internal/config"
	"github.com/brickfolio/brickfolio/internal/logger"
	"github.com/brickfolio/brickfolio/internal/session"
	"github.com/brickfolio/brickfolio/internal/store"
	"go.uber.org/zap"
)

var (
	version   string
	buildDate string
)

// repl runs the interactive shell loop over the session and the
// collection view.
func repl(sess *session.Manager, view *collection.View, st store.Store, events *analytics.Sink) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("brickfolio> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, login <user> <pass>, me, logout,")
			fmt.Println("  refresh, lists, list <id>, sets <id>, owned, wishlist,")
			fmt.Println("  own <set>, wish <set>, add <list> <set>, remove <list> <set>,")
			fmt.Println("  newlist <title>, rename <id> <title>, dellist <id>,")
			fmt.Println("  public <id> <on|off>, save <id>, saved, search <query>, exit")
		case "login":
			if len(args) < 3 {
				fmt.Println("Usage: login <user> <pass>")
				continue
			}
			if err := sess.SignIn(ctx, args[1], args[2]); err != nil {
				fmt.Println("Login failed:", err)
				continue
			}
			fmt.Println("Logged in")
			if err := view.Refresh(ctx); err != nil {
				fmt.Println("Refresh failed:", err)
			}
		case "me":
			id := sess.Identity()
			if id == nil {
				fmt.Println("Not signed in (state:", sess.State().String()+")")
			} else {
				fmt.Printf("#%d %s\n", id.ID, id.Username)
			}
		case "logout":
			if err := sess.Logout(ctx); err != nil {
				fmt.Println("Logout failed:", err)
				continue
			}
			_ = view.Refresh(ctx)
			fmt.Println("Logged out")
		case "refresh":
			if err := view.Refresh(ctx); err != nil {
				fmt.Println("Refresh failed:", err)
			}
		case "lists":
			for _, l := range view.Lists() {
				kind := "custom"
				if l.System() {
					kind = l.SystemKey
				}
				fmt.Printf("%4d  %-24s %-10s %d items\n", l.ID, l.Title, kind, l.ItemsCount)
			}
		case "list":
			id, ok := parseID(args, "list <id>")
			if !ok {
				continue
			}
			d := view.Detail(id)
			if d == nil {
				fmt.Println("List not loaded")
				continue
			}
			b, _ := json.MarshalIndent(d, "", "  ")
			fmt.Println(string(b))
		case "sets":
			id, ok := parseID(args, "sets <id>")
			if !ok {
				continue
			}
			sets, err := view.ResolveListSets(ctx, id)
			if err != nil {
				fmt.Println("Lookup failed:", err)
				continue
			}
			for _, s := range sets {
				fmt.Printf("%-10s %-40s %d (%d parts)\n", s.SetNum, s.Name, s.Year, s.NumParts)
			}
		case "public":
			if len(args) == 1 {
				lists, err := view.PublicLists(ctx)
				if err != nil {
					fmt.Println("Lookup failed:", err)
					continue
				}
				for _, l := range lists {
					fmt.Printf("%4d  %-24s by %-16s %d items\n", l.ID, l.Title, l.Owner, len(l.Items))
				}
				continue
			}
			if len(args) < 3 {
				fmt.Println("Usage: public            (browse public lists)")
				fmt.Println("       public <id> <on|off>  (set list visibility)")
				continue
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				fmt.Println("Bad list id:", args[1])
				continue
			}
			reportMutation(view, view.SetVisibility(ctx, id, args[2] == "on"))
		case "owned":
			fmt.Println(strings.Join(view.OwnedSetNums(), ", "))
		case "wishlist":
			fmt.Println(strings.Join(view.WishlistSetNums(), ", "))
		case "own":
			if len(args) < 2 {
				fmt.Println("Usage: own <set>")
				continue
			}
			reportMutation(view, view.ToggleOwned(ctx, args[1]))
		case "wish":
			if len(args) < 2 {
				fmt.Println("Usage: wish <set>")
				continue
			}
			reportMutation(view, view.ToggleWishlist(ctx, args[1]))
		case "add":
			id, ref, ok := parseIDRef(args, "add <list> <set>")
			if !ok {
				continue
			}
			reportMutation(view, view.AddToList(ctx, id, ref))
		case "remove":
			id, ref, ok := parseIDRef(args, "remove <list> <set>")
			if !ok {
				continue
			}
			reportMutation(view, view.RemoveFromList(ctx, id, ref))
		case "newlist":
			if len(args) < 2 {
				fmt.Println("Usage: newlist <title>")
				continue
			}
			l, err := view.CreateList(ctx, strings.Join(args[1:], " "), false)
			if err != nil {
				fmt.Println("Create failed:", err)
				continue
			}
			fmt.Printf("Created list %d\n", l.ID)
		case "rename":
			if len(args) < 3 {
				fmt.Println("Usage: rename <id> <title>")
				continue
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				fmt.Println("Bad list id:", args[1])
				continue
			}
			reportMutation(view, view.RenameList(ctx, id, strings.Join(args[2:], " ")))
		case "dellist":
			id, ok := parseID(args, "dellist <id>")
			if !ok {
				continue
			}
			reportMutation(view, view.DeleteList(ctx, id))
		case "save":
			if len(args) < 2 {
				fmt.Println("Usage: save <id>")
				continue
			}
			ids, err := store.ToggleSavedListID(ctx, st, args[1])
			if err != nil {
				fmt.Println("Save failed:", err)
				continue
			}
			fmt.Println("Saved lists:", strings.Join(ids, ", "))
		case "saved":
			ids, err := st.SavedListIDs(ctx)
			if err != nil {
				fmt.Println("Read failed:", err)
				continue
			}
			fmt.Println(strings.Join(ids, ", "))
		case "search":
			if len(args) < 2 {
				fmt.Println("Usage: search <query>")
				continue
			}
			events.TrackSearchSubmit(strings.Join(args[1:], " "), "shell")
			fmt.Println("Recorded")
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func parseID(args []string, usage string) (int64, bool) {
	if len(args) < 2 {
		fmt.Println("Usage:", usage)
		return 0, false
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Println("Bad list id:", args[1])
		return 0, false
	}
	return id, true
}

func parseIDRef(args []string, usage string) (int64, string, bool) {
	if len(args) < 3 {
		fmt.Println("Usage:", usage)
		return 0, "", false
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Println("Bad list id:", args[1])
		return 0, "", false
	}
	return id, args[2], true
}

// reportMutation surfaces a rollback message, if any, after a
// mutation attempt.
func reportMutation(view *collection.View, err error) {
	if err != nil {
		fmt.Println("Failed:", err)
	}
	if msg := view.LastMessage(); msg != "" {
		fmt.Println(msg)
	}
}

// main wires the persisted store, API client, session and collection
// view, hydrates the session and enters the shell.
func main() {
	options := config.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	var st store.Store
	if options.RedisURL != "" {
		rs, err := store.NewRedisStore(options.RedisURL)
		if err != nil {
			zapLogger.Fatal("cannot connect to redis", zap.Error(err))
		}
		defer func() { _ = rs.Close() }()
		st = rs
	} else {
		st = store.NewFileStore(options.StoragePath)
	}

	client := api.New(api.Config{
		BackendBase: options.BackendBase,
		SiteOrigin:  options.SiteOrigin,
		Direct:      options.DirectBackend,
	}, nil, zapLogger)

	sess := session.NewManager(client, st, zapLogger)
	view := collection.NewView(client, sess, zapLogger)

	eventsBase := cmp.Or(options.SiteOrigin, "http://"+options.RelayAddr)
	events := analytics.NewSink(&analytics.HTTPEmitter{URL: eventsBase + "/api/events"}, zapLogger, 0)
	defer events.Close()

	ctx := context.Background()
	if err := sess.Hydrate(ctx); err != nil {
		zapLogger.Fatal("cannot hydrate session", zap.Error(err))
	}
	if sess.Token() != "" {
		if err := view.Refresh(ctx); err != nil {
			zapLogger.Warn("initial refresh failed", zap.Error(err))
		}
	}

	repl(sess, view, st, events)
}
