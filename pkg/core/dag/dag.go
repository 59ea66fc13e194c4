package dag

import (
	"crypto/sha256"
	"fmt"
	"sort"

	godag "github.com/begmaroman/go-dag"

	"github.com/djordjijeK/taskflow/pkg/core/task"
)

// Graph 校验完成的依赖图（对外导出）
// 结构（节点、边、dependents索引）在Build成功后不可变，可被多goroutine无锁读取
type Graph struct {
	dag        *godag.DAG[*task.Task]
	tasks      map[string]*task.Task
	dependents map[string][]string
	tags       []string
}

// Build 从Task集合构建并校验依赖图（对外导出）
// 校验是全有或全无的：任何Task执行前必须先通过引用完整性检查和循环检测
// 失败返回MissingDependencyError或CyclicDependencyError，不产生任何副作用
func Build(tasks []*task.Task) (*Graph, error) {
	index := make(map[string]*task.Task, len(tasks))
	for _, t := range tasks {
		if _, exists := index[t.ID()]; exists {
			return nil, fmt.Errorf("任务 %s 已存在于任务集合中", t.ID())
		}
		index[t.ID()] = t
	}

	// 1. 引用完整性检查：所有依赖ID必须存在于任务集合中
	for _, t := range tasks {
		for _, depID := range t.Dependencies() {
			if _, exists := index[depID]; !exists {
				return nil, &MissingDependencyError{TaskID: t.ID(), DependencyID: depID}
			}
		}
	}

	// 2. 构建临时邻接表（边：前置Task -> 后置Task），一次性检测循环
	graph := make(map[string][]string, len(tasks))
	for id := range index {
		graph[id] = make([]string, 0)
	}
	for _, t := range tasks {
		for _, depID := range t.Dependencies() {
			graph[depID] = append(graph[depID], t.ID())
		}
	}

	if hasCycle, cyclePath := detectCycleDFS(graph); hasCycle {
		return nil, &CyclicDependencyError{Cycle: cyclePath}
	}

	// 3. 创建go-dag实例并添加所有节点和边
	// 循环已提前排除，AddEdge不会失败
	d := godag.NewDAG[*task.Task]()
	// Task只有未导出字段，默认VertexHashFunc（json.Marshal）会让所有Task哈希相同，
	// 必须按ID哈希节点
	d.Options(godag.Options[*task.Task]{VertexHashFunc: func(t *task.Task) godag.VHash {
		return sha256.Sum256([]byte(t.ID()))
	}})
	for _, t := range tasks {
		if _, err := d.AddVertex(t); err != nil {
			return nil, fmt.Errorf("添加节点失败: Task ID=%s, Error=%w", t.ID(), err)
		}
	}
	for _, t := range tasks {
		for _, depID := range t.Dependencies() {
			if err := d.AddEdge(depID, t.ID()); err != nil {
				return nil, fmt.Errorf("添加边失败: %s -> %s, Error=%w", depID, t.ID(), err)
			}
		}
	}

	// 4. 计算反向索引（dependents），构建后只读
	dependents := make(map[string][]string, len(tasks))
	for id, children := range graph {
		deps := make([]string, len(children))
		copy(deps, children)
		sort.Strings(deps)
		dependents[id] = deps
	}

	// 5. 收集所有出现过的Tag
	tagSet := make(map[string]struct{})
	for _, t := range tasks {
		tagSet[t.Tag()] = struct{}{}
	}
	tags := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return &Graph{
		dag:        d,
		tasks:      index,
		dependents: dependents,
		tags:       tags,
	}, nil
}

// detectCycleDFS 使用DFS检测图中是否存在循环
// 三色标记法：0=白色（未访问），1=灰色（正在访问），2=黑色（已访问）
// graph: 邻接表，key是节点ID，value是该节点的所有子节点ID列表
func detectCycleDFS(graph map[string][]string) (bool, []string) {
	color := make(map[string]int, len(graph))
	parent := make(map[string]string, len(graph))
	cyclePath := make([]string, 0)

	var dfs func(nodeID string) bool
	dfs = func(nodeID string) bool {
		color[nodeID] = 1

		for _, childID := range graph[nodeID] {
			if color[childID] == 0 {
				parent[childID] = nodeID
				if dfs(childID) {
					return true
				}
			} else if color[childID] == 1 {
				// 灰色节点，存在后向边，构建循环路径
				cyclePath = append(cyclePath, childID)
				cur := nodeID
				for cur != childID && cur != "" {
					cyclePath = append(cyclePath, cur)
					cur = parent[cur]
				}
				cyclePath = append(cyclePath, childID) // 闭合循环
				// 反转为依赖方向的可读顺序
				for i, j := 0, len(cyclePath)-1; i < j; i, j = i+1, j-1 {
					cyclePath[i], cyclePath[j] = cyclePath[j], cyclePath[i]
				}
				return true
			}
		}

		color[nodeID] = 2
		return false
	}

	for nodeID := range graph {
		if color[nodeID] == 0 {
			if dfs(nodeID) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// Task 获取指定Task
func (g *Graph) Task(taskID string) (*task.Task, error) {
	t, exists := g.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("任务 %s 不存在", taskID)
	}
	return t, nil
}

// Tasks 获取所有Task（ID -> Task映射，调用方不得修改）
func (g *Graph) Tasks() map[string]*task.Task {
	return g.tasks
}

// Dependents 获取直接依赖指定Task的下游Task ID列表
func (g *Graph) Dependents(taskID string) []string {
	return g.dependents[taskID]
}

// Roots 获取所有根Task（无依赖，初始即就绪）
func (g *Graph) Roots() []*task.Task {
	roots := g.dag.GetRoots()
	result := make([]*task.Task, 0, len(roots))
	for id := range roots {
		result = append(result, g.tasks[id])
	}
	return result
}

// Parents 获取指定Task的前置Task ID列表
func (g *Graph) Parents(taskID string) ([]string, error) {
	parents, err := g.dag.GetParents(taskID)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(parents))
	for id := range parents {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}

// Tags 获取任务集合中出现的所有Tag（排序后）
func (g *Graph) Tags() []string {
	return g.tags
}

// Size 获取节点数量
func (g *Graph) Size() int {
	return len(g.tasks)
}

// Nodes 获取所有节点的静态视图（调试和展示用）
func (g *Graph) Nodes() map[string]*Node {
	nodes := make(map[string]*Node, len(g.tasks))
	for id, t := range g.tasks {
		nodes[id] = &Node{
			ID:       id,
			Tag:      t.Tag(),
			InDegree: len(t.Dependencies()),
			OutEdges: g.dependents[id],
		}
	}
	return nodes
}
