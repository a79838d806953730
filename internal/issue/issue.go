// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	InvalidBinPathId Id = iota + 1
	InvalidConfigPathId
	InvalidTempPathId
	ConfigLoadFailedId
	CommandNotFoundId
	DownloadFailedId
	DownloadTooLargeId
	ExecutionFailedId
	TempAreaCleanupRefusedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	invalidBinPathIssue = &Issue{
		id: InvalidBinPathId,
		mdMsg: `
# Invalid executables directory!

The configured ` + "`bin_path`" + ` could not be validated, so no commands can be exposed.

## Requirements:
- The path must exist and be a directory (not a regular file, FIFO, device, or socket)
- The directory must be readable by the user running chatopsd

## Things you can try:
- Point ` + "`bin_path`" + ` at the directory holding your executables:
~~~
$ chatopsd serve --config chatopsd.yaml
~~~

- Or set it via the environment:
~~~
$ CA_BINPATH=/opt/chatops/bin chatopsd serve
~~~

- Check permissions:
~~~
$ ls -ld /opt/chatops/bin
~~~`,
	}

	invalidConfigPathIssue = &Issue{
		id: InvalidConfigPathId,
		mdMsg: `
# Invalid config directory!

The configured ` + "`config_path`" + ` could not be validated.

## Notes:
- ` + "`config_path`" + ` is optional: leave it unset to disable declarative
  command configs entirely (a ` + "`conf.d`" + ` directory next to your
  executables is picked up automatically when present)
- When set, it must be a readable directory

## Things you can try:
- Remove the setting to run with scanned executables only
- Fix the path or its permissions and retry`,
	}

	invalidTempPathIssue = &Issue{
		id: InvalidTempPathId,
		mdMsg: `
# Invalid temp directory!

The configured ` + "`temp_path`" + ` could not be validated.

## Requirements:
- The path must exist, be a directory, and be writable

## Things you can try:
- Leave ` + "`temp_path`" + ` unset: a scratch directory is then created under
  the system temp root and cleaned up automatically on shutdown
- Or point it at a writable directory:
~~~
$ CA_TMPPATH=/var/tmp/chatops chatopsd serve
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load a command config file!

A config file could not be parsed, so its entries were skipped. Other files
still contribute their commands.

## Supported formats (selected by extension):
- ` + "`.yaml` / `.yml`" + `, ` + "`.json`" + `, ` + "`.toml`" + `

## Each file must contain a sequence of command entries:
~~~yaml
- bin_path: /opt/chatops/bin/deploy
  help: "deploy <env>"
  timeout: 120
- name: fetched_tool
  url: https://example.com/tool
~~~

## Things you can try:
- Check the log line naming the file and the parse error
- Validate the file's syntax
- Remember: every entry needs ` + "`bin_path`" + ` or ` + "`url`" + `, and
  ` + "`url`" + ` entries also need a ` + "`name`" + ``,
	}

	commandNotFoundIssue = &Issue{
		id: CommandNotFoundId,
		mdMsg: `
# Command not found!

The command you asked for is not in the registry.

## Things you can try:
- List all registered commands:
~~~
$ chatopsd list
~~~

- Check for typos: names are lowercased and spaces become underscores, so
  the file ` + "`Disk Usage`" + ` registers as ` + "`disk_usage`" + `
- Check the exclusion list (` + "`exclusions`" + ` / ` + "`COPS_EXCLUSIONS`" + `)
- New executables are only picked up at startup; restart chatopsd after
  adding files to the bin directory`,
	}

	downloadFailedIssue = &Issue{
		id: DownloadFailedId,
		mdMsg: `
# Failed to download a command binary!

A config entry references a ` + "`url`" + ` that could not be fetched, so that
entry was skipped. Other entries still loaded.

## Common causes:
- The server answered with a non-2xx status
- The URL uses a scheme other than http or https
- Network failure after retries

## Things you can try:
- Check the URL in the config entry
- Verify the artifact is reachable from the chatopsd host:
~~~
$ curl -fI https://example.com/tool
~~~`,
	}

	downloadTooLargeIssue = &Issue{
		id: DownloadTooLargeId,
		mdMsg: `
# Download exceeds the size limit!

The artifact's declared size is larger than ` + "`max_download_size`" + `, so
the fetch was refused before streaming the body.

## Things you can try:
- Raise the limit (bytes):
~~~
$ COPS_MAX_DL=100000000 chatopsd serve
~~~

- Or host a smaller artifact`,
	}

	executionFailedIssue = &Issue{
		id: ExecutionFailedId,
		mdMsg: `
# Command execution failed!

The command's binary could not be spawned.

## Common causes:
- The binary was removed after registration
- The file is not executable or permission was denied
- A script's interpreter line points at a missing program

## Things you can try:
- Check the binary still exists and carries an execute bit:
~~~
$ ls -l /opt/chatops/bin
~~~

- Run the binary manually as the chatopsd user
- Restart chatopsd to rebuild the registry`,
	}

	tempAreaCleanupRefusedIssue = &Issue{
		id: TempAreaCleanupRefusedId,
		mdMsg: `
# Temp area cleanup refused!

Shutdown wanted to delete the scratch directory, but the path is not inside
the system temp root, so nothing was deleted. This is a safety stop, not a
data loss.

## Common causes:
- ` + "`temp_path`" + ` was pointed somewhere outside the system temp root
  and ended up flagged for cleanup

## Things you can try:
- Leave ` + "`temp_path`" + ` unset so the scratch area lives under the
  system temp root
- Remove the leftover directory manually if it is no longer needed`,
	}

	issues = map[Id]*Issue{
		invalidBinPathIssue.Id():         invalidBinPathIssue,
		invalidConfigPathIssue.Id():      invalidConfigPathIssue,
		invalidTempPathIssue.Id():        invalidTempPathIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		commandNotFoundIssue.Id():        commandNotFoundIssue,
		downloadFailedIssue.Id():         downloadFailedIssue,
		downloadTooLargeIssue.Id():       downloadTooLargeIssue,
		executionFailedIssue.Id():        executionFailedIssue,
		tempAreaCleanupRefusedIssue.Id(): tempAreaCleanupRefusedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
