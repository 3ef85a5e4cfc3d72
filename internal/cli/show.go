package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show property details",
		Long:  "Show full details for a property, including its images and features.",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parsePropertyID(args[0])
	if err != nil {
		return err
	}

	resp, err := newAPIClient().GetProperty(id)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(resp)
	}

	printPropertySummary(resp.Property)
	fmt.Println()
	if len(resp.Features) > 0 {
		names := make([]string, len(resp.Features))
		for i, f := range resp.Features {
			names[i] = f.Name
		}
		fmt.Printf("Features: %s\n", strings.Join(names, ", "))
	}
	if len(resp.Images) > 0 {
		fmt.Printf("Images (%d):\n", len(resp.Images))
		for _, img := range resp.Images {
			marker := " "
			if img.IsCover {
				marker = "*"
			}
			fmt.Printf(" %s %s\n", marker, img.URL)
		}
	} else {
		fmt.Println("No images.")
	}

	return nil
}
