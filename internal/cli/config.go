package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration girs runs with.

Every value can be set with a GIRS_ environment variable or in a .env file
in the working directory or the girs config directory:

  GIRS_API_URL             backend base URL
  GIRS_REQUEST_TIMEOUT     per-request timeout (e.g. 30s)
  GIRS_PROJECT_NAME        project name shown in the chat header
  GIRS_AGENT_NAME          assistant display name
  GIRS_AGENT_DESCRIPTION   greeting shown in an empty chat
  GIRS_AGENT_AVATAR_URL    assistant avatar
  GIRS_SESSION_FILE        where the session token is stored
  GIRS_LOG_FILE            JSON log file
  GIRS_LOG_LEVEL           DEBUG, INFO, WARN or ERROR`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	token, err := storage.Token()
	status := "signed out"
	switch {
	case err != nil:
		status = fmt.Sprintf("unreadable (%v)", err)
	case token != "":
		status = "token stored"
	}

	fmt.Printf("API URL:           %s\n", cfg.APIURL)
	fmt.Printf("Request timeout:   %s\n", cfg.RequestTimeout)
	fmt.Printf("Project name:      %s\n", cfg.ProjectName)
	fmt.Printf("Agent name:        %s\n", cfg.AgentName)
	fmt.Printf("Agent description: %s\n", cfg.AgentDescription)
	if cfg.AgentAvatarURL != "" {
		fmt.Printf("Agent avatar:      %s\n", cfg.AgentAvatarURL)
	}
	fmt.Printf("Session file:      %s (%s)\n", storage.Path(), status)
	fmt.Printf("Log file:          %s\n", cfg.LogFile)
	fmt.Printf("Log level:         %s\n", cfg.LogLevel)
	return nil
}
