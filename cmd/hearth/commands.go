package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kegdev/hearth/internal/inventory"
	"github.com/kegdev/hearth/internal/model"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show your account status and whether the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.AccountStatus(cmd.Context(), a.cfg.UserID, a.cfg.Email)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(res.Data)
			}
			a.printSource(res.Source)
			status := res.Data
			fmt.Fprintf(a.out, "user:    %s\n", a.cfg.UserID)
			if status.Email != "" {
				fmt.Fprintf(a.out, "email:   %s\n", status.Email)
			}
			if status.DisplayName != "" {
				fmt.Fprintf(a.out, "name:    %s\n", status.DisplayName)
			}
			fmt.Fprintf(a.out, "status:  %s\n", status.Status)
			fmt.Fprintf(a.out, "online:  %t\n", a.cache.IsOnline())
			if age, ok := a.cache.CacheAge(a.cfg.UserID); ok {
				fmt.Fprintf(a.out, "cached:  %d min ago\n", age)
			}
			return nil
		},
	}
}

func newContainersCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "containers",
		Short: "List your containers and those shared with you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.Containers(cmd.Context(), a.cfg.UserID)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(res.Data)
			}
			a.printSource(res.Source)
			a.printContainers(res.Data)
			return nil
		},
	}
}

func newItemsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "items <container-id>",
		Short: "List the items in a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.Items(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(res.Data)
			}
			a.printSource(res.Source)
			a.printItems(res.Data)
			return nil
		},
	}
}

type containerFlags struct {
	name        string
	description string
	location    string
	imageURL    string
}

func (f *containerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "container name")
	cmd.Flags().StringVar(&f.description, "description", "", "what is kept in it")
	cmd.Flags().StringVar(&f.location, "location", "", "where it is")
	cmd.Flags().StringVar(&f.imageURL, "image", "", "image URL or data URL")
}

// input sets only the fields whose flags were given.
func (f *containerFlags) input(cmd *cobra.Command) model.ContainerInput {
	var in model.ContainerInput
	set := func(flag string, target **string, value string) {
		if cmd.Flags().Changed(flag) {
			*target = model.Ptr(value)
		}
	}
	set("name", &in.Name, f.name)
	set("description", &in.Description, f.description)
	set("location", &in.Location, f.location)
	set("image", &in.ImageURL, f.imageURL)
	return in
}

func newContainerCommand(a *app) *cobra.Command {
	container := &cobra.Command{
		Use:   "container",
		Short: "Create, change, share or remove a container",
	}

	var addFlags containerFlags
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := addFlags.input(cmd)
			in.Name = model.Ptr(args[0])
			created, err := a.svc.CreateContainer(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printResult(created, "created container %s (%s)\n", created.Name, created.ID)
		},
	}
	addFlags.register(add)

	var editFlags containerFlags
	edit := &cobra.Command{
		Use:   "edit <container-id>",
		Short: "Change a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updated, err := a.svc.UpdateContainer(cmd.Context(), args[0], editFlags.input(cmd))
			if err != nil {
				return err
			}
			return a.printResult(updated, "updated container %s\n", updated.ID)
		},
	}
	editFlags.register(edit)

	rm := &cobra.Command{
		Use:   "rm <container-id>",
		Short: "Delete a container and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DeleteContainer(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted container %s\n", args[0])
			return nil
		},
	}

	var permission string
	share := &cobra.Command{
		Use:   "share <container-id> <email>",
		Short: "Share a container with another approved user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := a.svc.ShareContainer(cmd.Context(), args[0], model.ShareInput{
				Email:      args[1],
				Permission: model.SharePermission(permission),
			})
			if err != nil {
				return err
			}
			return a.printResult(created, "shared %s with %s (%s)\n", args[0], created.SharedWithEmail, created.Permission)
		},
	}
	share.Flags().StringVar(&permission, "permission", string(model.PermissionView), "view, edit or admin")

	unshare := &cobra.Command{
		Use:   "unshare <container-id> <user-id>",
		Short: "Stop sharing a container with a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.UnshareContainer(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "unshared %s from %s\n", args[0], args[1])
			return nil
		},
	}

	container.AddCommand(add, edit, rm, share, unshare)
	return container
}

type itemFlags struct {
	name          string
	description   string
	imageURL      string
	tags          []string
	category      string
	purchasePrice float64
	currentValue  float64
	purchaseDate  string
	condition     string
	warranty      string
	serialNumber  string
	modelName     string
	brand         string
	moveTo        string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.name, "name", "", "item name")
	flags.StringVar(&f.description, "description", "", "description")
	flags.StringVar(&f.imageURL, "image", "", "image URL or data URL")
	flags.StringSliceVar(&f.tags, "tags", nil, "comma separated tags")
	flags.StringVar(&f.category, "category", "", "category id")
	flags.Float64Var(&f.purchasePrice, "price", 0, "purchase price")
	flags.Float64Var(&f.currentValue, "value", 0, "current value")
	flags.StringVar(&f.purchaseDate, "bought", "", "purchase date (YYYY-MM-DD)")
	flags.StringVar(&f.condition, "condition", "", "new, excellent, good, fair or poor")
	flags.StringVar(&f.warranty, "warranty", "", "warranty details")
	flags.StringVar(&f.serialNumber, "serial", "", "serial number")
	flags.StringVar(&f.modelName, "model", "", "model")
	flags.StringVar(&f.brand, "brand", "", "brand")
}

func (f *itemFlags) input(cmd *cobra.Command) (model.ItemInput, error) {
	var in model.ItemInput
	changed := cmd.Flags().Changed
	set := func(flag string, target **string, value string) {
		if changed(flag) {
			*target = model.Ptr(value)
		}
	}
	set("name", &in.Name, f.name)
	set("description", &in.Description, f.description)
	set("image", &in.ImageURL, f.imageURL)
	set("category", &in.CategoryID, f.category)
	set("warranty", &in.Warranty, f.warranty)
	set("serial", &in.SerialNumber, f.serialNumber)
	set("model", &in.Model, f.modelName)
	set("brand", &in.Brand, f.brand)
	if changed("tags") {
		in.Tags = f.tags
	}
	if changed("price") {
		in.PurchasePrice = model.Ptr(f.purchasePrice)
	}
	if changed("value") {
		in.CurrentValue = model.Ptr(f.currentValue)
	}
	if changed("condition") {
		in.Condition = model.Ptr(model.Condition(f.condition))
	}
	if changed("bought") {
		date, err := time.Parse(time.DateOnly, f.purchaseDate)
		if err != nil {
			return model.ItemInput{}, fmt.Errorf("--bought: %w", err)
		}
		in.PurchaseDate = &date
	}
	if changed("move-to") {
		in.ContainerID = model.Ptr(f.moveTo)
	}
	return in, nil
}

func newItemCommand(a *app) *cobra.Command {
	item := &cobra.Command{
		Use:   "item",
		Short: "Create, change or remove an item",
	}

	var addFlags itemFlags
	add := &cobra.Command{
		Use:   "add <container-id> <name>",
		Short: "Add an item to a container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := addFlags.input(cmd)
			if err != nil {
				return err
			}
			in.Name = model.Ptr(args[1])
			created, err := a.svc.CreateItem(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return a.printResult(created, "created item %s (%s)\n", created.Name, created.ID)
		},
	}
	addFlags.register(add)

	var editFlags itemFlags
	edit := &cobra.Command{
		Use:   "edit <container-id> <item-id>",
		Short: "Change an item, or move it with --move-to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := editFlags.input(cmd)
			if err != nil {
				return err
			}
			updated, err := a.svc.UpdateItem(cmd.Context(), args[0], args[1], in)
			if err != nil {
				return err
			}
			return a.printResult(updated, "updated item %s\n", updated.ID)
		},
	}
	editFlags.register(edit)
	edit.Flags().StringVar(&editFlags.moveTo, "move-to", "", "id of the container to move the item to")

	rm := &cobra.Command{
		Use:   "rm <container-id> <item-id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DeleteItem(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted item %s\n", args[1])
			return nil
		},
	}

	item.AddCommand(add, edit, rm)
	return item
}

func newRegisterCommand(a *app) *cobra.Command {
	var name, reason string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Ask an administrator for access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := a.svc.Register(cmd.Context(), model.RegistrationInput{
				Email:       a.cfg.Email,
				DisplayName: name,
				Reason:      reason,
			})
			if err != nil {
				return err
			}
			return a.printResult(request, "registration request %s is %s\n", request.ID, request.Status)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&reason, "reason", "", "why you need access")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newReviewCommand(a *app) *cobra.Command {
	var deny bool
	var notes string
	cmd := &cobra.Command{
		Use:   "review <request-id>",
		Short: "Approve (or with --deny, deny) a registration request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := a.svc.ReviewRegistration(cmd.Context(), args[0], model.ReviewInput{Approve: !deny, Notes: notes})
			if err != nil {
				return err
			}
			return a.printResult(request, "registration request %s is %s\n", request.ID, request.Status)
		},
	}
	cmd.Flags().BoolVar(&deny, "deny", false, "deny instead of approve")
	cmd.Flags().StringVar(&notes, "notes", "", "notes for the requester")
	return cmd
}

func newRefreshCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Drop cached data so the next command fetches fresh data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.svc.Refresh()
			fmt.Fprintln(a.out, "cache cleared")
			return nil
		},
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget all cached data for this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.svc.Logout()
			fmt.Fprintln(a.out, "logged out")
			return nil
		},
	}
}

func newCacheCommand(a *app) *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the local cache",
	}
	cache.AddCommand(&cobra.Command{
		Use:   "debug",
		Short: "List every cache entry with its age and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := a.cache.Entries()
			if a.json {
				return a.printJSON(entries)
			}
			a.printEntries(entries)
			return nil
		},
	})
	return cache
}

// sourceNote describes data that did not come straight from the server.
func sourceNote(source inventory.Source) string {
	switch source {
	case inventory.SourceOffline:
		return "offline: showing cached data"
	case inventory.SourceFast:
		return "showing recently cached data"
	case inventory.SourceStale:
		return "server unreachable: showing older cached data"
	default:
		return ""
	}
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}
