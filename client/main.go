package main

import (
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/pborman/getopt"
)

func main() {
	svr := getopt.StringLong("svr", 's', "localhost:8080", "sentrycam server addr:port")
	key := getopt.StringLong("api-key", 'a', "", "sentrycam server API key")
	camera := getopt.StringLong("camera", 'c', "", "camera name, defaults to the first camera")
	command := getopt.StringLong("command", 'x', "cameras", "cameras|snapshot|stats|clips|config|formats|start|stop|reset")
	out := getopt.StringLong("out", 'o', "snapshot.jpeg", "snapshot output file")
	limit := getopt.IntLong("limit", 'l', 20, "number of clips to list")
	getopt.Parse()

	if err := run(resty.New().SetBaseURL("http://"+*svr), *key, *camera, *command, *out, *limit); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(client *resty.Client, key, camera, command, out string, limit int) error {
	req := client.R().SetHeader("X-Api-Key", key)
	if camera != "" {
		req.SetQueryParam("camera", camera)
	}

	var path string
	switch command {
	case "cameras":
		path = "/v1/cameras"
	case "snapshot", "stats", "config", "formats":
		path = "/v1/" + command
	case "clips":
		path = "/v1/clips"
		req.SetQueryParam("limit", fmt.Sprint(limit))
	case "start", "stop", "reset":
		path = "/v1/command"
		req.SetQueryParam("command", command)
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	resp, err := req.Get(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("http status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	if command == "snapshot" {
		if err := os.WriteFile(out, resp.Body(), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %d bytes to %s\n", len(resp.Body()), out)
		return nil
	}
	fmt.Println(string(resp.Body()))
	return nil
}
