package main

import (
	"fmt"
	"os"

	"github.com/google/shlex"
	"github.com/netgate-io/netgate/cmd/ng/style"
	"github.com/netgate-io/netgate/internal/serializer"
	"github.com/netgate-io/netgate/internal/task"
	"github.com/spf13/cobra"
)

func runCommand(client *apiClient) *cobra.Command {
	var (
		ip       string
		hostname string
		commands string
		channel  string
		category string
		username string
		password string
		timeout  int
		wait     float64
	)

	cmd := &cobra.Command{
		Use:   `run -i IP -c '"show version" "show inventory"'`,
		Short: "Run commands on a device",
		Long: `Run commands on a device through the broker.

The -c argument is split shell-style: quote each command that contains
spaces, so one quoted string is one command sent to the device.`,
		Run: func(cmd *cobra.Command, args []string) {
			cmds, err := shlex.Split(commands)
			if err != nil {
				fmt.Println(style.RenderError(fmt.Sprintf("invalid commands: %s", err)))
				os.Exit(1)
			}

			body := map[string]any{"commands": cmds}
			if ip != "" {
				body["ip"] = ip
			}
			if hostname != "" {
				body["hostname"] = hostname
			}
			if channel != "" {
				body["channel"] = channel
			}
			if username != "" {
				body["username"] = username
			}
			if password != "" {
				body["password"] = password
			}
			if timeout > 0 {
				body["timeout"] = timeout
			}
			if wait > 0 {
				body["wait"] = wait
			}

			raw, err := client.post("/api/v1/sync/"+category, body)
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

			renderResult(raw)
		},
	}

	cmd.Flags().StringVarP(&ip, "ip", "i", "", "device IP address")
	cmd.Flags().StringVarP(&hostname, "hostname", "n", "", "device hostname")
	cmd.Flags().StringVarP(&commands, "commands", "c", "", "commands to run, shell-quoted")
	cmd.Flags().StringVar(&channel, "channel", "", "worker channel, defaults to the device vendor")
	cmd.Flags().StringVar(&category, "category", task.CategoryCLI, "task category (cli, snmp)")
	cmd.Flags().StringVarP(&username, "username", "u", "", "login username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "login password")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "per-command timeout in seconds")
	cmd.Flags().Float64Var(&wait, "wait", 0, "pause between commands in seconds")
	_ = cmd.MarkFlagRequired("commands")

	return cmd
}

func renderResult(raw []byte) {
	var res task.Result
	if err := serializer.JSON.Unmarshal(raw, &res); err != nil {
		fmt.Println(string(raw))
		return
	}

	target := res.Hostname
	if target == "" {
		target = res.IP
	}
	fmt.Print(style.Title(target))

	switch res.Status {
	case task.StatusSuccess:
		fmt.Println(style.RenderSuccess(string(res.Status)))
	default:
		fmt.Println(style.RenderError(fmt.Sprintf("%s: %s", res.Status, res.Message)))
	}

	for _, cr := range res.Output {
		fmt.Print(style.BlockTitle(cr.Command))
		if cr.Status == task.CommandOk {
			fmt.Println(style.Block(cr.Output))
		} else {
			fmt.Println(style.RenderError(string(cr.Status)))
			fmt.Println(style.Block(cr.Output))
		}
	}

	fmt.Print(style.Subtitle(fmt.Sprintf("task %s  %s → %s", res.TaskID, res.StartAt, res.FinishAt)))
}
