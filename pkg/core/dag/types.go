package dag

// Node DAG节点视图（对外导出）
type Node struct {
	ID       string   // 节点ID（Task ID）
	Tag      string   // 资源组Tag
	InDegree int      // 入度（依赖的前置Task数量）
	OutEdges []string // 出边（依赖该节点的下游Task ID列表）
}
