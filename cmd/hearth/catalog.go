package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kegdev/hearth/internal/model"
)

func newTagCommand(a *app) *cobra.Command {
	tag := &cobra.Command{
		Use:   "tag",
		Short: "List, create, rename or remove your tags",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := a.svc.Tags(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(tags)
			}
			a.printTags(tags)
			return nil
		},
	}

	var addColor string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := model.TagInput{Name: model.Ptr(args[0])}
			if cmd.Flags().Changed("color") {
				in.Color = model.Ptr(addColor)
			}
			created, err := a.svc.CreateTag(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printResult(created, "created tag %s (%s)\n", created.Name, created.ID)
		},
	}
	add.Flags().StringVar(&addColor, "color", "", "color like #1a2b3c; picked from the name when omitted")

	var editName, editColor string
	edit := &cobra.Command{
		Use:   "edit <tag-id>",
		Short: "Rename or recolor a tag; a rename applies to your items too",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in model.TagInput
			if cmd.Flags().Changed("name") {
				in.Name = model.Ptr(editName)
			}
			if cmd.Flags().Changed("color") {
				in.Color = model.Ptr(editColor)
			}
			updated, err := a.svc.UpdateTag(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return a.printResult(updated, "updated tag %s\n", updated.ID)
		},
	}
	edit.Flags().StringVar(&editName, "name", "", "new name")
	edit.Flags().StringVar(&editColor, "color", "", "new color")

	rm := &cobra.Command{
		Use:   "rm <tag-id>",
		Short: "Delete a tag and remove it from your items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DeleteTag(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted tag %s\n", args[0])
			return nil
		},
	}

	suggest := &cobra.Command{
		Use:   "suggest <item name>",
		Short: "Suggest tags for an item name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suggestions := model.SuggestTags(strings.Join(args, " "))
			if a.json {
				return a.printJSON(suggestions)
			}
			if len(suggestions) == 0 {
				fmt.Fprintln(a.out, "no suggestions")
				return nil
			}
			fmt.Fprintln(a.out, strings.Join(suggestions, ", "))
			return nil
		},
	}

	tag.AddCommand(list, add, edit, rm, suggest)
	return tag
}

func newCategoryCommand(a *app) *cobra.Command {
	category := &cobra.Command{
		Use:   "category",
		Short: "Organize your categories",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show your categories as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.svc.CategoryTree(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(tree)
			}
			a.printCategoryTree(tree)
			return nil
		},
	}

	var addParent string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := model.CategoryInput{Name: model.Ptr(args[0])}
			if addParent != "" {
				in.ParentID = model.Ptr(addParent)
			}
			created, err := a.svc.CreateCategory(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printResult(created, "created category %s (%s)\n", created.Path, created.ID)
		},
	}
	add.Flags().StringVar(&addParent, "parent", "", "id of the parent category")

	var editName, editParent string
	edit := &cobra.Command{
		Use:   "edit <category-id>",
		Short: "Rename a category, or move it with --parent (empty for top level)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in model.CategoryInput
			if cmd.Flags().Changed("name") {
				in.Name = model.Ptr(editName)
			}
			if cmd.Flags().Changed("parent") {
				in.ParentID = model.Ptr(editParent)
			}
			updated, err := a.svc.UpdateCategory(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return a.printResult(updated, "updated category %s\n", updated.Path)
		},
	}
	edit.Flags().StringVar(&editName, "name", "", "new name")
	edit.Flags().StringVar(&editParent, "parent", "", "id of the new parent category")

	rm := &cobra.Command{
		Use:   "rm <category-id>",
		Short: "Delete a category without subcategories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DeleteCategory(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted category %s\n", args[0])
			return nil
		},
	}

	template := &cobra.Command{
		Use:   "template [name]",
		Short: "List the category templates, or create one's categories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if a.json {
					return a.printJSON(model.CategoryTemplates)
				}
				for _, t := range model.CategoryTemplates {
					fmt.Fprintf(a.out, "%s (%d categories)\n", t.Name, t.Count())
				}
				return nil
			}
			created, err := a.svc.CreateCategoriesFromTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printResult(created, "created %d categories\n", len(created))
		},
	}

	category.AddCommand(list, add, edit, rm, template)
	return category
}

func newSearchCommand(a *app) *cobra.Command {
	var in string
	search := &cobra.Command{
		Use:   "search <term>",
		Short: "Find containers and items by name, description, brand, model or serial",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := strings.Join(args, " ")
			if in != "" {
				res, err := a.svc.SearchInContainer(cmd.Context(), in, term)
				if err != nil {
					return err
				}
				if a.json {
					return a.printJSON(res.Data)
				}
				a.printSource(res.Source)
				a.printItems(res.Data)
				return nil
			}
			res, err := a.svc.Search(cmd.Context(), a.cfg.UserID, term)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(res.Data)
			}
			a.printSource(res.Source)
			a.printSearch(res.Data)
			return nil
		},
	}
	search.Flags().StringVar(&in, "in", "", "only search the items of this container")
	return search
}
