package shell

type bashShell struct{}

func (bashShell) Name() string { return "bash" }

func (bashShell) HookSnippet() string {
	return `export _ROLEMAN_HOOK_ENV="${XDG_STATE_HOME:-$HOME/.local/state}/roleman/env-${TTY//\//_}"
export _ROLEMAN_HOOK_VERSION=1
roleman() {
  command roleman --env-file "$_ROLEMAN_HOOK_ENV" "$@"
}
_roleman_prompt_command() {
  if [[ -f "$_ROLEMAN_HOOK_ENV" ]]; then
    source "$_ROLEMAN_HOOK_ENV"
    rm -f "$_ROLEMAN_HOOK_ENV"
  fi
}
if [[ -n "${PROMPT_COMMAND:-}" ]]; then
  PROMPT_COMMAND="_roleman_prompt_command;${PROMPT_COMMAND}"
else
  PROMPT_COMMAND="_roleman_prompt_command"
fi`
}

func (bashShell) RCPath() (string, error) { return homeRCPath(".bashrc") }

func (s bashShell) InstallLine() string { return `eval "$(roleman hook bash)"` }

func (bashShell) AliasLine() string { return "alias rl='roleman'" }

func (bashShell) ReloadCommand(rcPath string) string { return "source " + rcPath }
