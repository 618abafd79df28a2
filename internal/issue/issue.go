// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	WorkspaceNotFoundId Id = iota + 1
	ProjectNotFoundId
	DependencyCycleId
	CacheLockedId
	SettingsLoadFailedId
	ExportFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
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

// Render renders the issue with the glamour style at stylePath ("dark",
// "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range i.docLinks {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	workspaceNotFoundIssue = &Issue{
		id: WorkspaceNotFoundId,
		mdMsg: `
# No workspace found!

We walked up from the given directory looking for a ` + "`cnf/`" + ` or ` + "`bnd/`" + `
directory and reached the filesystem root without finding one.

## Things you can try:
- Run the command from inside the workspace, or pass it explicitly:
~~~
$ bndkit --workspace /path/to/workspace projects
~~~

- Create the configuration directory at the workspace root:
~~~
$ mkdir cnf && touch cnf/build.bnd
~~~

- If ` + "`cnf`" + ` is a redirect file, check that the path it contains exists.`,
		docLinks: []HttpLink{"https://bnd.bndtools.org/chapters/123-tour-workspace.html"},
	}

	projectNotFoundIssue = &Issue{
		id: ProjectNotFoundId,
		mdMsg: `
# Project not found!

No directory matching the project name contains a ` + "`bnd.bnd`" + ` file, or the
project definition is invalid.

## Things you can try:
- List the projects of the workspace:
~~~
$ bndkit projects
~~~

- Check ` + "`-project-search`" + ` in ` + "`cnf/build.bnd`" + ` when projects live below the root:
~~~properties
-project-search: bundles;depth=2, .
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Projects depend on each other through ` + "`-dependson`" + ` or ` + "`-buildpath`" + `, so no
build order exists.

## Things you can try:
- Break the cycle by moving shared code to a separate project
- Remove a ` + "`version=project`" + ` entry that is not needed on the build path`,
	}

	cacheLockedIssue = &Issue{
		id: CacheLockedId,
		mdMsg: `
# Workspace cache is busy!

Another operation held the cache lock for too long while seeding ` + "`cnf/cache`" + `.

## Things you can try:
- Wait for the other build to finish and retry
- Delete the cache directory; it is recreated on first use`,
	}

	settingsLoadFailedIssue = &Issue{
		id: SettingsLoadFailedId,
		mdMsg: `
# Failed to load settings!

The settings file could not be read or does not match the expected shape.

## Expected shape:
~~~json
{
  "publicKey": "<base64>",
  "privateKey": "<base64>",
  "map": { "key": "value" }
}
~~~

## Things you can try:
- Validate the JSON syntax of ` + "`~/.bnd/settings.json`" + `
- Point ` + "`--settings`" + ` or ` + "`BND_SETTINGS_DIR`" + ` at another directory`,
	}

	exportFailedIssue = &Issue{
		id: ExportFailedId,
		mdMsg: `
# Export failed!

The executable JAR could not be assembled.

## Things you can try:
- Make sure every ` + "`-runpath`" + ` and ` + "`-runbundles`" + ` entry resolves to a file
- Put the launcher JAR on ` + "`-runpath`" + ` so the embedded launcher can be copied
- Check the project warnings:
~~~
$ bndkit project <name>
~~~`,
	}

	issues = map[Id]*Issue{
		workspaceNotFoundIssue.Id():  workspaceNotFoundIssue,
		projectNotFoundIssue.Id():    projectNotFoundIssue,
		dependencyCycleIssue.Id():    dependencyCycleIssue,
		cacheLockedIssue.Id():        cacheLockedIssue,
		settingsLoadFailedIssue.Id(): settingsLoadFailedIssue,
		exportFailedIssue.Id():       exportFailedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	out := slices.Collect(maps.Values(issues))
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id - b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
