package history

import "sort"

// hotQuestionLimit 热门问题榜的长度
const hotQuestionLimit = 10

// defaultQuestions 冷启动时的兜底问题
var defaultQuestions = []string{
	"应用部署失败，报错 502",
	"磁盘空间不足怎么清理？",
	"规划天线经纬度和铁塔经纬度误差在多少米校验",
	"如何新增知识库文档？",
	"Nginx 配置反向代理",
	"内存泄漏排查步骤",
}

// HotQuestionSource 按提问频次排序的问题来源
type HotQuestionSource interface {
	HotQuestions(limit int) ([]string, error)
}

// Hot 热门问题服务。主来源不可用时退回内存缓冲按频次统计。
type Hot struct {
	source   HotQuestionSource
	fallback *Buffer
}

// NewHot 创建热门问题服务；fallback 可为 nil
func NewHot(source HotQuestionSource, fallback *Buffer) *Hot {
	return &Hot{source: source, fallback: fallback}
}

// Questions 返回热门问题榜，真实数据不足时用兜底问题补满
func (h *Hot) Questions() []string {
	questions, err := h.source.HotQuestions(hotQuestionLimit)
	if err != nil {
		questions = h.fromBuffer()
	}

	seen := make(map[string]bool, len(questions))
	for _, q := range questions {
		seen[q] = true
	}
	for _, q := range defaultQuestions {
		if len(questions) >= hotQuestionLimit {
			break
		}
		if !seen[q] {
			seen[q] = true
			questions = append(questions, q)
		}
	}
	return questions
}

// fromBuffer 对最近提问按频次排序，频次相同时新的在前
func (h *Hot) fromBuffer() []string {
	if h.fallback == nil {
		return nil
	}
	recent := h.fallback.Recent(0)

	counts := make(map[string]int, len(recent))
	order := make(map[string]int, len(recent))
	var unique []string
	for i, q := range recent {
		if counts[q] == 0 {
			order[q] = i
			unique = append(unique, q)
		}
		counts[q]++
	}
	sort.SliceStable(unique, func(i, j int) bool {
		if counts[unique[i]] != counts[unique[j]] {
			return counts[unique[i]] > counts[unique[j]]
		}
		return order[unique[i]] < order[unique[j]]
	})

	if len(unique) > hotQuestionLimit {
		unique = unique[:hotQuestionLimit]
	}
	return unique
}
