package volcano

import "github.com/teslashibe/go-tts/pkg/tts"

// DefaultVoice is the general purpose female voice (灿灿).
const DefaultVoice = "BV700_streaming"

// Voices is the speaker catalog of the streaming service.
// See https://www.volcengine.com/docs/6561/97465 for samples.
var Voices = []tts.Voice{
	{ID: "BV700_streaming", DisplayName: "灿灿", Gender: "female"},
	{ID: "ICL_zh_female_bingjiaojiejie_tob", DisplayName: "病娇姐姐", Gender: "female"},
	{ID: "BV700_V2_streaming", DisplayName: "灿灿二", Gender: "female"},
	{ID: "BV406_streaming", DisplayName: "梓梓", Gender: "female"},
	{ID: "BV406_V2_streaming", DisplayName: "梓梓二", Gender: "female"},
	{ID: "BV407_streaming", DisplayName: "燃燃", Gender: "female"},
	{ID: "BV407_V2_streaming", DisplayName: "燃燃二", Gender: "female"},
	{ID: "BV705_streaming", DisplayName: "炀炀", Gender: "female"},
	{ID: "BV701_streaming", DisplayName: "擎苍", Gender: "female"},
	{ID: "BV701_V2_streaming", DisplayName: "擎苍二", Gender: "female"},
	{ID: "BV001_streaming", DisplayName: "通用女声", Gender: "female"},
	{ID: "BV001_V2_streaming", DisplayName: "通用女声二", Gender: "female"},
	{ID: "BV002_streaming", DisplayName: "通用男声", Gender: "male"},
	{ID: "BV123_streaming", DisplayName: "阳光青年", Gender: "male"},
	{ID: "BV120_streaming", DisplayName: "反卷青年", Gender: "male"},
	{ID: "BV119_streaming", DisplayName: "通用赘婿", Gender: "male"},
	{ID: "BV115_streaming", DisplayName: "古风少御", Gender: "female"},
	{ID: "BV107_streaming", DisplayName: "霸气青叔", Gender: "male"},
	{ID: "BV100_streaming", DisplayName: "质朴青年", Gender: "male"},
	{ID: "BV104_streaming", DisplayName: "温柔淑女", Gender: "female"},
	{ID: "BV004_streaming", DisplayName: "开朗青年", Gender: "male"},
	{ID: "BV113_streaming", DisplayName: "甜宠少御", Gender: "female"},
	{ID: "BV102_streaming", DisplayName: "儒雅青年", Gender: "male"},
	{ID: "BV405_streaming", DisplayName: "甜美小源", Gender: "female"},
	{ID: "BV007_streaming", DisplayName: "亲切女声", Gender: "female"},
	{ID: "BV009_streaming", DisplayName: "知性女声", Gender: "female"},
	{ID: "BV419_streaming", DisplayName: "诚诚", Gender: "female"},
	{ID: "BV415_streaming", DisplayName: "童童", Gender: "female"},
	{ID: "BV008_streaming", DisplayName: "亲切男声", Gender: "male"},
	{ID: "BV408_streaming", DisplayName: "译制片男声", Gender: "male"},
	{ID: "BV426_streaming", DisplayName: "懒小羊", Gender: "male"},
	{ID: "BV428_streaming", DisplayName: "清新文艺女声", Gender: "female"},
	{ID: "BV403_streaming", DisplayName: "鸡汤女声", Gender: "female"},
	{ID: "BV158_streaming", DisplayName: "智慧老者", Gender: "male"},
	{ID: "BV157_streaming", DisplayName: "慈爱姥姥", Gender: "female"},
	{ID: "BR001_streaming", DisplayName: "说唱小哥", Gender: "male"},
	{ID: "BV410_streaming", DisplayName: "活力解说男", Gender: "male"},
	{ID: "BV411_streaming", DisplayName: "小帅", Gender: "male"},
	{ID: "BV437_streaming", DisplayName: "小帅多情感", Gender: "male"},
	{ID: "BV412_streaming", DisplayName: "小美", Gender: "female"},
	{ID: "BV159_streaming", DisplayName: "纨绔青年", Gender: "male"},
	{ID: "BV418_streaming", DisplayName: "直播一姐", Gender: "male"},
	{ID: "BV120_streaming", DisplayName: "反卷青年", Gender: "male"},
	{ID: "BV142_streaming", DisplayName: "沉稳解说男", Gender: "male"},
	{ID: "BV143_streaming", DisplayName: "潇洒青年", Gender: "male"},
	{ID: "BV056_streaming", DisplayName: "阳光男声", Gender: "male"},
	{ID: "BV005_streaming", DisplayName: "活泼女声", Gender: "female"},
	{ID: "BV064_streaming", DisplayName: "小萝莉", Gender: "female"},
	{ID: "BV051_streaming", DisplayName: "奶气萌娃", Gender: "male"},
	{ID: "BV063_streaming", DisplayName: "动漫海绵", Gender: "male"},
	{ID: "BV417_streaming", DisplayName: "动漫海星", Gender: "male"},
	{ID: "BV050_streaming", DisplayName: "动漫小新", Gender: "male"},
	{ID: "BV061_streaming", DisplayName: "天才童声", Gender: "male"},
	{ID: "BV401_streaming", DisplayName: "促销男声", Gender: "male"},
	{ID: "BV402_streaming", DisplayName: "促销女声", Gender: "female"},
	{ID: "BV006_streaming", DisplayName: "磁性男声", Gender: "male"},
	{ID: "BV011_streaming", DisplayName: "新闻女声", Gender: "female"},
	{ID: "BV012_streaming", DisplayName: "新闻男声", Gender: "male"},
	{ID: "BV034_streaming", DisplayName: "知性姐姐", Gender: "female"},
	{ID: "BV033_streaming", DisplayName: "温柔小哥", Gender: "male"},
	{ID: "BV021_streaming", DisplayName: "东北老铁", Gender: "male"},
	{ID: "BV020_streaming", DisplayName: "东北丫头", Gender: "female"},
	{ID: "BV704_streaming", DisplayName: "方言灿灿", Gender: "female"},
	{ID: "BV210_streaming", DisplayName: "佟掌柜", Gender: "female"},
	{ID: "BV217_streaming", DisplayName: "沪上阿姨", Gender: "female"},
	{ID: "BV213_streaming", DisplayName: "广西老表", Gender: "male"},
	{ID: "BV025_streaming", DisplayName: "甜美台妹", Gender: "female"},
	{ID: "BV227_streaming", DisplayName: "台普男声", Gender: "male"},
	{ID: "BV026_streaming", DisplayName: "港剧男神", Gender: "male"},
	{ID: "BV424_streaming", DisplayName: "广东话", Gender: "female"},
	{ID: "BV212_streaming", DisplayName: "天津话", Gender: "male"},
	{ID: "BV214_streaming", DisplayName: "郑州话", Gender: "male"},
	{ID: "BV019_streaming", DisplayName: "重庆话", Gender: "male"},
	{ID: "BV221_streaming", DisplayName: "四川话", Gender: "female"},
	{ID: "BV423_streaming", DisplayName: "重庆话", Gender: "female"},
	{ID: "BV226_streaming", DisplayName: "湖南话", Gender: "female"},
	{ID: "BV216_streaming", DisplayName: "长沙话", Gender: "female"},
}
