package policy

// BuiltinPolicies returns the policies every engine evaluates.
func BuiltinPolicies() []Policy {
	return []Policy{
		emptyPipelinePolicy(),
		generatedNamePolicy(),
		noPipelinesPolicy(),
	}
}

// emptyPipelinePolicy denies pipelines without modules. Such a pipeline
// outputs only its seed document.
func emptyPipelinePolicy() Policy {
	return Policy{
		Name:        "empty-pipeline",
		Description: "Pipelines must contain at least one module",
		Severity:    SeverityError,
		Enabled:     true,
		Rego: `package press.pipelines.empty

deny contains violation if {
	some p in input.pipelines
	count(p.modules) == 0
	violation := {
		"message": sprintf("pipeline %d (%s) has no modules", [p.ordinal, p.name]),
		"severity": "error",
		"pipeline": p.name,
	}
}
`,
	}
}

// generatedNamePolicy flags pipelines left with an automatically assigned name.
func generatedNamePolicy() Policy {
	return Policy{
		Name:        "generated-name",
		Description: "Pipelines should be given explicit names",
		Severity:    SeverityWarning,
		Enabled:     true,
		Rego: `package press.pipelines.naming

deny contains violation if {
	some p in input.pipelines
	regex.match("^Pipeline [0-9]+$", p.name)
	violation := {
		"message": sprintf("pipeline %d uses the generated name '%s'", [p.ordinal, p.name]),
		"severity": "warning",
		"pipeline": p.name,
	}
}
`,
	}
}

// noPipelinesPolicy warns when configuration produced nothing to execute.
func noPipelinesPolicy() Policy {
	return Policy{
		Name:        "no-pipelines",
		Description: "At least one pipeline should be configured",
		Severity:    SeverityWarning,
		Enabled:     true,
		Rego: `package press.pipelines.none

deny contains violation if {
	count(input.pipelines) == 0
	violation := {
		"message": "no pipelines are configured",
		"severity": "warning",
	}
}
`,
	}
}
