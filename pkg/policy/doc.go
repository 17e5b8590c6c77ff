// Package policy checks configured engines against Open Policy Agent (OPA)
// Rego policies before execution.
//
// Each policy exposes a deny set in its own package. Members are either
// strings or objects with message, severity and pipeline keys:
//
//	package press.custom
//
//	deny contains violation if {
//	    some p in input.pipelines
//	    p.name == "Drafts"
//	    violation := {"message": "drafts must not be built", "severity": "error", "pipeline": p.name}
//	}
//
// The input document has the shape
//
//	{
//	  "pipelines": [{"name": "Pages", "ordinal": 1, "modules": ["read_files", "front_matter"]}],
//	  "metadata_keys": ["site"],
//	  "root_folder": "/srv/site"
//	}
//
// Built-in policies deny pipelines without modules and warn about generated
// pipeline names and empty configurations. Any violation of error or critical
// severity makes Result.Allowed false.
package policy
