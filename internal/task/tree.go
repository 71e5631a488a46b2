package task

// Execution groups of the default tree. Groups run in ascending order;
// everything inside one group may run in parallel.
const (
	groupFoundation   = 1 // usvfs and the shared cmake machinery
	groupUibase       = 2 // every later project links against uibase
	groupLibraries    = 3 // support libraries and game integration
	pluginGroup       = 4 // installer and tool plugins
	groupApplication  = 5 // the application itself plus loose assets
	groupTranslations = 6 // needs every repository fetched
	groupInstaller    = 7 // packs the finished install tree
)

// DefaultRegistry builds the stock ModOrganizer task tree. The ordering
// mirrors the upstream super-build: foundations first, uibase alone, then
// the library and plugin waves, the application and its assets, and
// finally translations and the installer.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	add := func(t Task) {
		if err := r.Register(&t); err != nil {
			// The tree below is static; a failure here is a programming
			// error, not user input.
			panic("default task tree: " + err.Error())
		}
	}

	// mo adds a builtin sub-project. Each answers to its short name with
	// the repository prefix stripped, plus any historic alternates.
	mo := func(group int, name string, alternates ...string) {
		if short, ok := shortName(name); ok {
			alternates = append([]string{short}, alternates...)
		}
		add(Task{Name: name, Alternates: alternates, Group: group, Builtin: true, Kind: KindSource})
	}

	add(Task{Name: "usvfs", Group: groupFoundation, Kind: KindUsvfs})
	mo(groupFoundation, "cmake_common")

	mo(groupUibase, "modorganizer-uibase")

	mo(groupLibraries, "modorganizer-archive")
	mo(groupLibraries, "modorganizer-lootcli")
	mo(groupLibraries, "modorganizer-esptk")
	mo(groupLibraries, "modorganizer-bsatk")
	mo(groupLibraries, "modorganizer-nxmhandler")
	mo(groupLibraries, "modorganizer-helper")
	mo(groupLibraries, "modorganizer-game_bethesda")

	mo(pluginGroup, "modorganizer-bsapacker", "bsa_packer")
	mo(pluginGroup, "modorganizer-tool_inieditor", "inieditor")
	mo(pluginGroup, "modorganizer-tool_inibakery", "inibakery")
	mo(pluginGroup, "modorganizer-preview_bsa")
	mo(pluginGroup, "modorganizer-preview_base")
	mo(pluginGroup, "modorganizer-diagnose_basic")
	mo(pluginGroup, "modorganizer-check_fnis")
	mo(pluginGroup, "modorganizer-installer_bain")
	mo(pluginGroup, "modorganizer-installer_manual")
	mo(pluginGroup, "modorganizer-installer_bundle")
	mo(pluginGroup, "modorganizer-installer_quick")
	mo(pluginGroup, "modorganizer-installer_fomod")
	mo(pluginGroup, "modorganizer-installer_fomod_csharp")
	mo(pluginGroup, "modorganizer-installer_omod")
	mo(pluginGroup, "modorganizer-installer_wizard")
	mo(pluginGroup, "modorganizer-bsa_extractor")
	mo(pluginGroup, "modorganizer-plugin_python")

	add(Task{Name: "stylesheets", Alternates: []string{"ss"}, Group: groupApplication, Kind: KindStylesheets})
	add(Task{Name: "licenses", Group: groupApplication, Kind: KindLicenses})
	add(Task{Name: "explorerpp", Alternates: []string{"explorer++"}, Group: groupApplication, Kind: KindExplorerPP})
	mo(groupApplication, "modorganizer-tool_configurator", "pycfg")
	mo(groupApplication, "modorganizer-fnistool")
	mo(groupApplication, "modorganizer-basic_games")
	mo(groupApplication, "modorganizer-script_extender_plugin_checker", "scriptextenderpluginchecker")
	mo(groupApplication, "modorganizer-form43_checker", "form43checker")
	mo(groupApplication, "modorganizer-preview_dds", "ddspreview")
	mo(groupApplication, "modorganizer", "organizer")

	add(Task{Name: "translations", Group: groupTranslations, Kind: KindTranslations})
	add(Task{Name: "installer", Group: groupInstaller, Kind: KindInstaller})

	return r
}
