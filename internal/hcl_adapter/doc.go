// Package hcl_adapter loads config.Settings from HCL files.
//
// Attributes are evaluated with a small context: the variable default_passes
// holds the default optimization pipeline and the concat function joins
// lists, so a file can write
//
//	optimizer {
//	  passes = concat(default_passes, ["peephole"])
//	}
package hcl_adapter
