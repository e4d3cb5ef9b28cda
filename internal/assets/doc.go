// Package assets embeds the default Thing Description template and the
// long-form service description.
//
// Both files are compiled into the binary so the service has no runtime
// dependency on its working directory. Configuration can point either one
// at a file on disk instead (thing.template_file, thing.description_file).
package assets
