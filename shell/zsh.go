package shell

type zshShell struct{}

func (zshShell) Name() string { return "zsh" }

func (zshShell) HookSnippet() string {
	return `export _ROLEMAN_HOOK_ENV="${XDG_STATE_HOME:-$HOME/.local/state}/roleman/env-${TTY//\//_}"
export _ROLEMAN_HOOK_VERSION=1
roleman() {
  command roleman --env-file "$_ROLEMAN_HOOK_ENV" "$@"
}
_roleman_precmd() {
  if [[ -f "$_ROLEMAN_HOOK_ENV" ]]; then
    source "$_ROLEMAN_HOOK_ENV"
    rm -f "$_ROLEMAN_HOOK_ENV"
  fi
}
autoload -Uz add-zsh-hook
add-zsh-hook precmd _roleman_precmd`
}

func (zshShell) RCPath() (string, error) { return homeRCPath(".zshrc") }

func (s zshShell) InstallLine() string { return `eval "$(roleman hook zsh)"` }

func (zshShell) AliasLine() string { return "alias rl='roleman'" }

func (zshShell) ReloadCommand(rcPath string) string { return "source " + rcPath }
