package schema

import "sync"

// NamePattern is the package name rule enforced by the npm registry.
const NamePattern = `^(?:@[a-z0-9-*~][a-z0-9-*._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`

var (
	packageOnce   sync.Once
	packageSchema *Object
)

// Package returns the package.json schema. Its property order is the
// canonical order used when sorting a manifest.
func Package() *Object {
	packageOnce.Do(func() { packageSchema = buildPackage() })
	return packageSchema
}

func str(title, desc string) *String {
	return &String{Meta: Meta{Title: title, Description: desc}}
}

func strFormat(title, desc string, f Format) *String {
	s := str(title, desc)
	s.Format = f
	return s
}

func strEnum(title, desc string, values ...string) *String {
	s := str(title, desc)
	s.Enum = values
	return s
}

func tagged(s *String, key, value string) *String {
	s.Tags = map[string]string{key: value}
	return s
}

func prop(name string, n Node) Property { return Property{Name: name, Schema: n} }

func obj(title, desc string, props ...Property) *Object {
	return &Object{Meta: Meta{Title: title, Description: desc}, Properties: props}
}

func arr(title, desc string, items ...Node) *Array {
	return &Array{Meta: Meta{Title: title, Description: desc}, Items: items}
}

func person(title, desc string) *Object {
	o := obj(title, desc,
		prop("name", str("Name", "Name of the person.")),
		prop("url", strFormat("URL", "Homepage of the person.", FormatURI)),
		prop("email", strFormat("Email", "Email address of the person.", FormatEmail)),
	)
	o.Required = []string{"name"}
	o.Shorthand = true
	return o
}

func shorthand(o *Object) *Object {
	o.Shorthand = true
	return o
}

func dependencyMap(title, desc string) *Object {
	return obj(title, desc,
		prop(Wildcard, str("Dependency", "Version range, tarball or git URL keyed by package name.")),
	)
}

func buildPackage() *Object {
	name := str("Name", "The name of the package.")
	name.Length = Range[int]{Min: Ptr(1), Max: Ptr(214)}
	name.Pattern = NamePattern

	typ := strEnum("Type", "Module format of .js files under node.", "commonjs", "module")
	typ.Default = Ptr("commonjs")

	root := obj("package.json", "Metadata of a node package.",
		prop("name", name),
		prop("version", str("Version", "Version parseable by node-semver.")),
		prop("description", str("Description", "Listed in `npm search`.")),
		prop("keywords", arr("Keywords", "Listed in `npm search`.", str("Keyword", ""))),
		prop("author", person("Author", "The person who created the package.")),
		prop("contributors", arr("Contributors", "People who contributed to the package.",
			str("Contributor", "Contributor as a single string."),
			person("Contributor", "Contributor as an object."),
		)),
		prop("homepage", strFormat("Homepage", "URL of the project homepage.", FormatURI)),
		prop("repository", shorthand(obj("Repository", "Where the code lives.",
			prop("type", str("Type", "Repository type, e.g. git.")),
			prop("url", str("URL", "Repository URL.")),
			prop("directory", str("Directory", "Package directory inside a monorepo.")),
		))),
		prop("bugs", shorthand(obj("Bugs", "Issue tracker and contact address.",
			prop("url", strFormat("URL", "Issue tracker URL.", FormatURI)),
			prop("email", strFormat("Email", "Address issues should be reported to.", FormatEmail)),
		))),
		prop("funding", shorthand(obj("Funding", "How to fund the project.",
			prop("type", strEnum("Type", "Individual or platform.", "individual", "patreon")),
			prop("url", str("URL", "Funding URL.")),
		))),
		prop("type", typ),
		prop("files", arr("Files", "Files included when the package is published.", str("File", ""))),
		prop("main", str("Main", "Entry point for both browser and node.")),
		prop("module", tagged(str("Module", "ES module entry point."), "tripartite", "bundler")),
		prop("types", tagged(str("Types", "TypeScript declaration entry."), "tripartite", "typescript")),
		prop("unpkg", tagged(str("Unpkg", "Entry served by the unpkg CDN."), "tripartite", "unpkg")),
		prop("bin", obj("Bin", "Executables installed into PATH.",
			prop(Wildcard, str("Executable", "Path to the executable.")),
		)),
		prop("workspaces", arr("Workspaces", "Globs of member package directories.",
			str("Path", "Directory glob relative to the root."),
		)),
		prop("scripts", obj("Scripts", "Commands run at points of the package lifecycle.",
			prop("prepare", str("Prepare", "Runs before pack and publish, and on local install.")),
			prop("prepublish", str("Prepublish", "Runs before publish.")),
			prop("prepublishOnly", str("Prepublish only", "Runs before prepare, on publish only.")),
			prop("prepack", str("Prepack", "Runs before the tarball is packed.")),
			prop("postpack", str("Postpack", "Runs after the tarball is packed.")),
			prop(Wildcard, str("Script", "Custom script command.")),
		)),
		prop("config", obj("Config", "Values exposed as npm_package_config_* variables.",
			prop(Wildcard, str("Value", "")),
		)),
		prop("dependencies", dependencyMap("Dependencies", "Packages required at runtime.")),
		prop("devDependencies", dependencyMap("Dev dependencies", "Packages required for development only.")),
		prop("peerDependencies", dependencyMap("Peer dependencies", "Host packages this package is compatible with.")),
		prop("private", &Boolean{
			Meta:    Meta{Title: "Private", Description: "npm refuses to publish a private package."},
			Default: Ptr(false),
		}),
		prop("publishConfig", obj("Publish config", "Settings used at publish time.",
			prop("access", strEnum("Access", "Public or restricted.", "public", "restricted")),
			prop("registry", strFormat("Registry", "Registry to publish to.", FormatURI)),
		)),
		prop("license", str("License", "SPDX license identifier.")),
		prop("os", arr("OS", "Operating systems the package runs on.",
			strEnum("OS", "", "aix", "android", "darwin", "freebsd", "haiku", "linux",
				"openbsd", "sunos", "win32", "cygwin", "netbsd"),
		)),
		prop("cpu", arr("CPU", "Architectures the package runs on.",
			strEnum("CPU", "", "arm", "arm64", "ia32", "mips", "mipsel", "ppc", "ppc64",
				"s390", "s390x", "x64"),
		)),
		prop("engines", obj("Engines", "Runtime versions the package works with.",
			prop("node", str("Node", "Node version range.")),
			prop("npm", str("npm", "npm version range.")),
			prop(Wildcard, str("Engine", "Engine version range.")),
		)),
	)
	root.Required = []string{"name", "version"}
	return root
}
