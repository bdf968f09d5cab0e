package main

import (
	"fmt"
	"os"
	"text/tabwriter"
)

type skillsCmd struct {
	List skillsListCmd `cmd:"" default:"1" help:"List available skills."`
	Show skillsShowCmd `cmd:"" help:"Print a skill's style direction."`
}

type skillsListCmd struct{}

func (c *skillsListCmd) Run(app *appContext) error {
	loader, err := openSkills(app)
	if err != nil {
		return err
	}

	all := loader.All()
	if len(all) == 0 {
		fmt.Println("no skills found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tDESCRIPTION")
	for _, skill := range all {
		fmt.Fprintf(w, "%s\t%s\t%s\n", skill.Name, skill.Source, skill.Description)
	}
	return w.Flush()
}

type skillsShowCmd struct {
	Name string `arg:"" help:"Skill name."`
}

func (c *skillsShowCmd) Run(app *appContext) error {
	loader, err := openSkills(app)
	if err != nil {
		return err
	}

	skill := loader.Get(c.Name)
	if skill == nil {
		return fmt.Errorf("unknown skill %q", c.Name)
	}

	fmt.Printf("name:        %s\n", skill.Name)
	fmt.Printf("source:      %s\n", skill.Source)
	if skill.Location != "" {
		fmt.Printf("location:    %s\n", skill.Location)
	}
	fmt.Printf("description: %s\n", skill.Description)
	if len(skill.Models) > 0 {
		fmt.Printf("models:      %v\n", skill.Models)
	}
	fmt.Println()
	fmt.Println(skill.Body)
	return nil
}
