package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeAnalyzeProgram() string {
	return `Computes the link summary of every method of a program model: which parameters, fields and return values may share objects after a call, and which ones a call may modify.

USE WHEN:
- Checking whether a method leaks or captures references to its arguments
- Finding out which arguments a call may modify
- Reviewing aliasing between container elements and their containers

INTERPRETING RESULTS:
- Links read "from LV to". The LV is from-nature-to, optionally followed by |modFrom-modTo.
- Natures: 0 statically assigned (same object), 1 assigned, 2 dependent (part of), 4 shared hidden content, D delayed (unknown).
- Index sides name the part of each object involved: "*" all of it, "0" the first hidden-content slot, M marks a mutable part.
- "*M-4-0M" on <return> to ms: the result is one of the elements of ms.
- Unresolved methods sit on call cycles that did not stabilize; their links are a safe approximation.
- Diagnostics of severity error point at faulty or conflicting input.

METRICS RETURNED:
- methods: method, links (from, lv, to), modified variables, unresolved flag
- diagnostics: kind, method, message
- stats: summaries, linked methods, components, waves, memo hits`
}

func describeExplainLinks() string {
	return `Explains the links of one variable inside one method, at method exit or right after a given statement.

USE WHEN:
- A summary link is surprising and you need to see where it comes from
- Inspecting a local variable, which never appears in summaries
- Following how links change statement by statement

INTERPRETING RESULTS:
- Statement indices are dotted positions: "0" is the first statement, "1.0.0" the first statement inside the first block of statement 1.
- Assignments and modified list the statement indices that assigned or modified the variable up to that point.
- Links use the same notation as analyze_program.

METRICS RETURNED:
- method, variable, index, assignments, modified, links (from, lv, to)`
}
