package shell

import (
	"os"

	"roleman/config"
)

// HookState is the observed shell-integration state for one invocation.
type HookState struct {
	// VersionEnv is the value of _ROLEMAN_HOOK_VERSION in this process.
	VersionEnv string
	// EnvFileEnv is the value of _ROLEMAN_HOOK_ENV in this process.
	EnvFileEnv string
	// RCContents is the shell startup file's contents.
	RCContents string
}

// CurrentHookState reads the live hook state for sh.
func CurrentHookState(sh Shell) HookState {
	state := HookState{
		VersionEnv: os.Getenv(EnvHookVersion),
		EnvFileEnv: os.Getenv("_ROLEMAN_HOOK_ENV"),
	}
	if rcPath, err := sh.RCPath(); err == nil {
		if data, err := os.ReadFile(rcPath); err == nil {
			state.RCContents = string(data)
		}
	}
	return state
}

// Reminder returns the hook reminder to show before a run, if any. offer
// reports that the hook is missing entirely and installing it should be
// offered interactively.
func Reminder(mode string, sh Shell, state HookState) (message string, offer bool) {
	if mode == config.HookPromptNever {
		return "", false
	}
	if state.VersionEnv == HookVersion {
		return "", false
	}

	rcPath, err := sh.RCPath()
	if err != nil {
		return "", false
	}
	reload := sh.ReloadCommand(rcPath)

	if state.EnvFileEnv != "" || state.VersionEnv != "" {
		return "Shell hook looks outdated. Please reload your shell: " + reload, false
	}
	if HasActiveHook(state.RCContents, sh.InstallLine()) {
		return "Shell hook is installed but not active. Reload your shell: " + reload, false
	}
	if mode == config.HookPromptOutdated {
		return "", false
	}
	return "Shell hook isn't installed.", true
}
