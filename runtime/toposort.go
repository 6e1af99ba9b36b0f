package runtime

// TopologicalSort resolves an execution order for the steps using Kahn's
// algorithm. Ties among simultaneously-ready steps break by discovery
// order, which keeps the result deterministic for a given definition.
//
// A result shorter than the input means the dependency relation has a
// cycle. Definition validation catches this earlier; the re-check here is
// deliberate so the orchestrator never trusts an unvalidated ordering.
func TopologicalSort(steps []StepDefinition) ([]StepID, error) {
	inDegree := make(map[StepID]int, len(steps))
	dependents := make(map[StepID][]StepID, len(steps))

	for _, s := range steps {
		inDegree[s.ID] = len(s.DependsOn)
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	queue := make([]StepID, 0, len(steps))
	for _, s := range steps {
		if inDegree[s.ID] == 0 {
			queue = append(queue, s.ID)
		}
	}

	order := make([]StepID, 0, len(steps))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, dependent := range dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) < len(steps) {
		// Any step still carrying in-degree is on or behind a cycle.
		for _, s := range steps {
			if inDegree[s.ID] > 0 {
				return nil, NewCircularDependency(s.ID)
			}
		}
	}

	return order, nil
}
