package utils

import (
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// 渲染后的正文里补齐图片的加载与隐私属性
var imgAttrs = map[string]string{
	"referrerpolicy": "no-referrer",
	"rel":            "noopener",
	"loading":        "lazy",
}

// EnhanceHTMLContent 对清洗后的 HTML 做最后一道加工：
// 目前只处理 img 标签。解析失败时原样返回。
func EnhanceHTMLContent(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		for attr, val := range imgAttrs {
			img.SetAttr(attr, val)
		}
	})

	// goquery 会补全 html/body 包裹，只取 body 内容
	out, err := doc.Find("body").Html()
	if err != nil || out == "" {
		out, _ = doc.Html()
	}
	return template.HTML(out)
}
