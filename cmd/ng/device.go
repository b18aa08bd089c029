package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/netgate-io/netgate/cmd/ng/style"
	"github.com/netgate-io/netgate/internal/serializer"
	"github.com/spf13/cobra"
)

type deviceSearchReply struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count"`
	Devices []struct {
		IP       string `json:"ip"`
		Hostname string `json:"hostname"`
		Vendor   string `json:"vendor"`
		Platform string `json:"platform"`
	} `json:"devices"`
}

func deviceCommand(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Inspect the device directory",
	}

	search := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search devices (term, a|b union, a&b intersection)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			raw, err := client.get("/api/v1/device/" + url.PathEscape(args[0]))
			if err != nil {
				fmt.Println(style.RenderError(err.Error()))
				os.Exit(1)
			}

			if *jsonFormat {
				if err := printJSON(raw); err != nil {
					fmt.Println(style.RenderError(err.Error()))
					os.Exit(1)
				}
				return
			}

			var reply deviceSearchReply
			if err := serializer.JSON.Unmarshal(raw, &reply); err != nil {
				fmt.Println(string(raw))
				return
			}
			if reply.Status != "success" {
				fmt.Println(style.RenderError(reply.Message))
				os.Exit(1)
			}

			fmt.Print(style.Title(fmt.Sprintf("%d device(s)", reply.Count)))
			for _, d := range reply.Devices {
				fmt.Print(style.Item(fmt.Sprintf("%-15s  %-20s  %s/%s", d.IP, d.Hostname, d.Vendor, d.Platform)))
			}
		},
	}

	cmd.AddCommand(search)
	return cmd
}
