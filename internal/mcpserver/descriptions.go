package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeKnitGraph() string {
	return `Extracts the Knit dependency-injection graph from Kotlin sources and analyzes it.

USE WHEN:
- Understanding how classes are wired through @Provides and "by di"
- Finding circular DI dependencies before they fail at runtime
- Locating the classes most components depend on
- Reviewing the DI impact of a change at a given git revision

INTERPRETING RESULTS:
- provider-param edges: the provider needs or constructs the target
- consumer-requests edges: the owner injects the target with "by di"
- Cycles list node chains that close back on their first node
- Heaviest nodes have the most incoming plus outgoing edges
- Critical nodes lie on the most dependency paths (depth 10)
- Errors list files that failed extraction; the graph is still usable

METRICS RETURNED:
- graph: nodes (definedIn, usedIn), edges, fileToDefinedNodes, errors
- analysis (unless graph_only): cycles, heaviestNodes, longestPaths, maxDepth,
  criticalNodes, rootNodes, leafNodes, isolatedNodes, summary (density, PageRank)`
}

func describeGraphMetrics() string {
	return `Runs graph analysis over an existing Knit graph document.

USE WHEN:
- Re-analyzing a graph produced earlier by analyze_knit_graph
- Checking a graph edited by hand or by another tool
- Comparing metrics across graph versions without rescanning sources

INTERPRETING RESULTS:
- The document is validated against the graph JSON schema first
- Edges whose endpoints are not declared nodes are ignored
- criticalSkipped means the graph exceeded the critical-node ceiling

METRICS RETURNED:
- cycles, heaviestNodes, longestPaths, maxDepth, criticalNodes,
  rootNodes, leafNodes, isolatedNodes, summary`
}
