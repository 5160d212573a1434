package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hearth-faas/hearth/internal/client"
	"github.com/hearth-faas/hearth/utils"
)

func invoke(cmd *cobra.Command, args []string) {
	if len(funcName) < 1 {
		fmt.Printf("Invalid function name.\n")
		cmd.Help()
		return
	}

	paramsMap := make(map[string]string)
	for _, rawParam := range params {
		tokens := strings.Split(rawParam, ":")
		if len(tokens) < 2 {
			cmd.Help()
			return
		}
		paramsMap[tokens[0]] = strings.Join(tokens[1:], ":")
	}

	url := fmt.Sprintf("http://%s:%d/invoke/%s", ServerConfig.Host, ServerConfig.Port, funcName)

	var body *strings.Reader
	if len(paramsMap) > 0 {
		invocationBody, err := json.Marshal(paramsMap)
		if err != nil {
			cmd.Help()
			return
		}
		body = strings.NewReader(string(invocationBody))
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequest(http.MethodGet, url, body)
	if err != nil {
		fmt.Printf("Invocation failed: %v\n", err)
		os.Exit(2)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Invocation failed: %v\n", err)
		os.Exit(2)
	}
	utils.PrintJsonResponse(resp.Body)
}

func stats(cmd *cobra.Command, args []string) {
	url := fmt.Sprintf("http://%s:%d/stats", ServerConfig.Host, ServerConfig.Port)
	resp, err := utils.GetJson(url)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(2)
	}
	utils.PrintJsonResponse(resp.Body)
}

func reset(cmd *cobra.Command, args []string) {
	url := fmt.Sprintf("http://%s:%d/stats/reset", ServerConfig.Host, ServerConfig.Port)
	_, err := utils.PostJson(url, []byte{})
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(2)
	}
	fmt.Println("Statistics reset.")
}

func setStrategy(cmd *cobra.Command, args []string) {
	if len(strategyName) < 1 {
		fmt.Printf("Invalid strategy.\n")
		cmd.Help()
		return
	}

	request := client.StrategyRequest{Strategy: strategyName}
	requestBody, err := json.Marshal(request)
	if err != nil {
		cmd.Help()
		return
	}

	url := fmt.Sprintf("http://%s:%d/set_strategy", ServerConfig.Host, ServerConfig.Port)
	resp, err := utils.PostJson(url, requestBody)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(2)
	}
	utils.PrintJsonResponse(resp.Body)
}

func status(cmd *cobra.Command, args []string) {
	url := fmt.Sprintf("http://%s:%d/status", ServerConfig.Host, ServerConfig.Port)
	resp, err := utils.GetJson(url)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(2)
	}
	utils.PrintJsonResponse(resp.Body)
}

func prewarm(cmd *cobra.Command, args []string) {
	if len(funcName) < 1 {
		fmt.Printf("Invalid function name.\n")
		cmd.Help()
		return
	}

	request := client.PrewarmRequest{Function: funcName, Instances: instances}
	requestBody, err := json.Marshal(request)
	if err != nil {
		cmd.Help()
		return
	}

	url := fmt.Sprintf("http://%s:%d/prewarm", ServerConfig.Host, ServerConfig.Port)
	resp, err := utils.PostJson(url, requestBody)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(2)
	}
	utils.PrintJsonResponse(resp.Body)
}
