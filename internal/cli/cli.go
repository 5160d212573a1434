package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type RemoteServerConf struct {
	Host string
	Port int
}

var ServerConfig RemoteServerConf

var rootCmd = &cobra.Command{
	Use:   "hearth-cli",
	Short: "CLI utility for Hearth",
	Long:  `CLI utility to interact with a Hearth warm-pool FaaS scheduler.`,
}

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Invokes a function",
	Run:   invoke,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints scheduling statistics",
	Run:   stats,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Resets scheduling statistics",
	Run:   reset,
}

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Sets the container reuse strategy (lru or mru)",
	Run:   setStrategy,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the server status",
	Run:   status,
}

var prewarmCmd = &cobra.Command{
	Use:   "prewarm",
	Short: "Spawns idle containers for a function",
	Run:   prewarm,
}

var funcName, strategyName string
var instances int
var params []string
var verbose bool

func Init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&ServerConfig.Host, "host", "H", ServerConfig.Host, "remote Hearth host")
	rootCmd.PersistentFlags().IntVarP(&ServerConfig.Port, "port", "P", ServerConfig.Port, "remote Hearth port")

	rootCmd.AddCommand(invokeCmd)
	invokeCmd.Flags().StringVarP(&funcName, "function", "f", "", "name of the function")
	invokeCmd.Flags().StringSliceVarP(&params, "param", "p", nil, "Function parameter: <name>:<value>")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)

	rootCmd.AddCommand(strategyCmd)
	strategyCmd.Flags().StringVarP(&strategyName, "strategy", "s", "", "reuse strategy: lru or mru")

	rootCmd.AddCommand(statusCmd)

	rootCmd.AddCommand(prewarmCmd)
	prewarmCmd.Flags().StringVarP(&funcName, "function", "f", "", "name of the function")
	prewarmCmd.Flags().IntVarP(&instances, "instances", "n", 1, "number of containers to spawn")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
