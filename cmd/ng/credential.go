package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/netgate-io/netgate/cmd/ng/style"
	"github.com/spf13/cobra"
)

func credentialCommand(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage device credentials",
	}

	cmd.AddCommand(credentialGet(client))
	cmd.AddCommand(credentialSet(client))
	cmd.AddCommand(credentialDelete(client))
	cmd.AddCommand(credentialGetCommon(client))
	cmd.AddCommand(credentialSetCommon(client))
	return cmd
}

func credentialGet(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "get [IP|HOSTNAME]",
		Short: "Show the stored credential of a device, or all devices",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := "/api/v1/credential"
			if len(args) == 1 {
				path += "/" + url.PathEscape(args[0])
			}
			raw, err := client.get(path)
			exitOnError(err)
			exitOnError(printJSON(raw))
		},
	}
}

func credentialSet(client *apiClient) *cobra.Command {
	var profile struct {
		IP             string
		Hostname       string
		Method         string
		Username       string
		Password       string
		EnablePassword string
		Community      string
		Vendor         string
		Platform       string
	}

	cmd := &cobra.Command{
		Use:   "set -i IP [flags]",
		Short: "Create or update a device credential",
		Run: func(cmd *cobra.Command, args []string) {
			body := map[string]any{"ip": profile.IP}
			set := func(key, value string) {
				if value != "" {
					body[key] = value
				}
			}
			set("hostname", profile.Hostname)
			set("method", profile.Method)
			set("username", profile.Username)
			set("password", profile.Password)
			set("enable_password", profile.EnablePassword)
			set("community", profile.Community)
			set("vendor", profile.Vendor)
			set("platform", profile.Platform)

			raw, err := client.post("/api/v1/credential", body)
			exitOnError(err)
			exitOnError(printJSON(raw))
		},
	}

	cmd.Flags().StringVarP(&profile.IP, "ip", "i", "", "device IP address")
	cmd.Flags().StringVarP(&profile.Hostname, "hostname", "n", "", "device hostname")
	cmd.Flags().StringVar(&profile.Method, "method", "", "login method (ssh, telnet)")
	cmd.Flags().StringVarP(&profile.Username, "username", "u", "", "login username")
	cmd.Flags().StringVarP(&profile.Password, "password", "p", "", "login password")
	cmd.Flags().StringVar(&profile.EnablePassword, "enable-password", "", "enable secret")
	cmd.Flags().StringVar(&profile.Community, "community", "", "snmp community")
	cmd.Flags().StringVar(&profile.Vendor, "vendor", "", "device vendor")
	cmd.Flags().StringVar(&profile.Platform, "platform", "", "device platform")
	_ = cmd.MarkFlagRequired("ip")

	return cmd
}

func credentialDelete(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "delete IP|HOSTNAME",
		Short: "Delete a device credential",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			raw, err := client.delete("/api/v1/credential/" + url.PathEscape(args[0]))
			exitOnError(err)
			exitOnError(printJSON(raw))
		},
	}
}

func credentialGetCommon(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "get-common",
		Short: "Show the common credential defaults",
		Run: func(cmd *cobra.Command, args []string) {
			raw, err := client.get("/api/v1/credential_common")
			exitOnError(err)
			exitOnError(printJSON(raw))
		},
	}
}

func credentialSetCommon(client *apiClient) *cobra.Command {
	var username, password, enablePassword, community string

	cmd := &cobra.Command{
		Use:   "set-common",
		Short: "Update the common credential defaults",
		Run: func(cmd *cobra.Command, args []string) {
			body := map[string]any{}
			if username != "" {
				body["username"] = username
			}
			if password != "" {
				body["password"] = password
			}
			if enablePassword != "" {
				body["enable_password"] = enablePassword
			}
			if community != "" {
				body["community"] = community
			}

			raw, err := client.put("/api/v1/credential_common", body)
			exitOnError(err)
			exitOnError(printJSON(raw))
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "default username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "default password")
	cmd.Flags().StringVar(&enablePassword, "enable-password", "", "default enable secret")
	cmd.Flags().StringVar(&community, "community", "", "default snmp community")

	return cmd
}

func exitOnError(err error) {
	if err != nil {
		fmt.Println(style.RenderError(err.Error()))
		os.Exit(1)
	}
}
